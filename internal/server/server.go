package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"paper-trade-bot-go/internal/stream"
	"paper-trade-bot-go/internal/trader"
)

// Server exposes the trading core and the streaming feed over HTTP.
type Server struct {
	server   *http.Server
	service  *trader.Service
	feed     *trader.Feed
	hub      *stream.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer wires the HTTP surface around the trading core.
func NewServer(port int, service *trader.Service, feed *trader.Feed, hub *stream.Hub, logger *zap.Logger) *Server {
	s := &Server{
		service: service,
		feed:    feed,
		hub:     hub,
		upgrader: websocket.Upgrader{
			// The browser dashboard is served from another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.healthHandler)
	mux.HandleFunc("/api/control/start", s.startHandler)
	mux.HandleFunc("/api/control/pause", s.pauseHandler)
	mux.HandleFunc("/api/control/resume", s.resumeHandler)
	mux.HandleFunc("/api/control/kill", s.killHandler)
	mux.HandleFunc("/api/watchlist", s.watchlistHandler)
	mux.HandleFunc("/api/watchlist/add", s.watchlistAddHandler)
	mux.HandleFunc("/api/watchlist/remove", s.watchlistRemoveHandler)
	mux.HandleFunc("/api/account/snapshot", s.snapshotHandler)
	mux.HandleFunc("/api/account/reset", s.resetHandler)
	mux.HandleFunc("/api/performance/today", s.performanceHandler)
	mux.HandleFunc("/api/trades/last", s.lastTradeHandler)
	mux.HandleFunc("/api/trades", s.tradesHandler)
	mux.HandleFunc("/api/settings/risk", s.riskHandler)
	mux.HandleFunc("/api/prices", s.pricesHandler)
	mux.HandleFunc("/api/trade", s.tradeHandler)
	mux.HandleFunc("/ws", s.wsHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: corsMiddleware(mux),
	}

	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// corsMiddleware allows the dashboard origin unrestricted access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
