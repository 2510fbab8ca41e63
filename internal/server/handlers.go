package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"paper-trade-bot-go/internal/models"
	"paper-trade-bot-go/internal/stream"
	"paper-trade-bot-go/internal/trader"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	state := s.feed.Start()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(state)})
}

func (s *Server) pauseHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	state := s.feed.Pause()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(state)})
}

func (s *Server) resumeHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	state := s.feed.Resume()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(state)})
}

func (s *Server) killHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.feed.Kill()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "killed"})
}

func (s *Server) watchlistHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"watchlist": s.service.Watchlist()})
}

func (s *Server) watchlistAddHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"watchlist": s.service.AddSymbol(symbol)})
}

func (s *Server) watchlistRemoveHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"watchlist": s.service.RemoveSymbol(symbol)})
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Snapshot(r.Context()))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var balance float64
	if raw := r.URL.Query().Get("balance"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "balance must be a positive number")
			return
		}
		balance = parsed
	}

	snapshot, err := s.service.Reset(r.Context(), balance)
	if err != nil {
		s.logger.Error("Account reset failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to reset account")
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) performanceHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Performance())
}

func (s *Server) lastTradeHandler(w http.ResponseWriter, r *http.Request) {
	trade, err := s.service.LastTrade()
	if err != nil {
		s.logger.Error("Failed to read last trade", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to read last trade")
		return
	}
	if trade == nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbol": nil, "side": nil, "quantity": nil, "price": nil, "time": nil,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *Server) tradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := s.service.TradeLog()
	if err != nil {
		s.logger.Error("Failed to read trade log", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to read trade log")
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) riskHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	query := r.URL.Query()
	var update models.RiskUpdate

	parse := func(name string) (*float64, bool) {
		raw := query.Get(name)
		if raw == "" {
			return nil, true
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, name+" must be a number")
			return nil, false
		}
		return &parsed, true
	}

	var ok bool
	if update.PositionSize, ok = parse("position_size"); !ok {
		return
	}
	if update.MaxDailyLoss, ok = parse("max_daily_loss"); !ok {
		return
	}
	if update.StopLossPct, ok = parse("stop_loss_pct"); !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, s.service.UpdateRisk(update))
}

func (s *Server) pricesHandler(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, symbol := range strings.Split(raw, ",") {
			if symbol = strings.TrimSpace(symbol); symbol != "" {
				symbols = append(symbols, symbol)
			}
		}
	}
	s.writeJSON(w, http.StatusOK, s.service.LivePrices(r.Context(), symbols))
}

func (s *Server) tradeHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	query := r.URL.Query()
	symbol := query.Get("symbol")
	side := query.Get("side")
	quantity, err := strconv.ParseFloat(query.Get("quantity"), 64)
	if symbol == "" || query.Get("quantity") == "" || err != nil {
		s.writeError(w, http.StatusBadRequest, "symbol, side and numeric quantity are required")
		return
	}

	trade, err := s.service.ExecuteTrade(r.Context(), symbol, side, quantity)
	if err != nil {
		s.writeError(w, tradeErrorStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

// tradeErrorStatus maps the executor's failure taxonomy onto HTTP statuses.
func tradeErrorStatus(err error) int {
	switch {
	case errors.Is(err, trader.ErrInvalidSide), errors.Is(err, trader.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, trader.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, trader.ErrInsufficientFunds), errors.Is(err, trader.ErrInsufficientPosition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	session := stream.NewSession(conn)
	s.hub.Register(session)

	// The read loop only detects disconnection; clients send nothing the
	// server interprets.
	go session.ReadLoop(func() {
		s.hub.Unregister(session)
		_ = session.Close()
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
