package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-trade-bot-go/internal/config"
	"paper-trade-bot-go/internal/models"
	"paper-trade-bot-go/internal/quotes"
)

// Service is the trading core: it owns the account ledger, the watchlist,
// the performance counters and the risk settings, executes manual trades
// priced from the quote source, and appends to the trade log.
//
// A single mutex serializes every state mutation so the HTTP handlers and
// the feed loop can call in from separate goroutines.
type Service struct {
	mu sync.Mutex

	logger *zap.Logger
	db     *gorm.DB
	client quotes.ClientInterface

	ledger          *ledger
	watchlist       []string
	performance     models.Performance
	risk            models.RiskSettings
	startingBalance float64
}

// NewService creates the trading core with the configured starting balance,
// watchlist seed and default risk settings.
func NewService(cfg *config.Config, client quotes.ClientInterface, db *gorm.DB, logger *zap.Logger) *Service {
	s := &Service{
		logger:          logger.Named("trader"),
		db:              db,
		client:          client,
		ledger:          newLedger(cfg.Trading.StartingBalance),
		startingBalance: cfg.Trading.StartingBalance,
		risk: models.RiskSettings{
			PositionSize: cfg.Risk.PositionSize,
			MaxDailyLoss: cfg.Risk.MaxDailyLoss,
			StopLossPct:  cfg.Risk.StopLossPct,
		},
	}
	for _, symbol := range cfg.Trading.Watchlist {
		s.addSymbolLocked(symbol)
	}
	return s
}

// ExecuteTrade validates and applies one manual order. Validation failures
// leave the account, the trade log and the counters untouched.
func (s *Service) ExecuteTrade(ctx context.Context, symbol, side string, quantity float64) (*models.Trade, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	side = strings.ToUpper(strings.TrimSpace(side))

	if side != models.SideBuy && side != models.SideSell {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidSide, side)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidQuantity, quantity)
	}

	// Price before taking the lock; the lookup can block for the duration of
	// its timeout and must not stall snapshot reads meanwhile.
	prices := s.client.Lookup(ctx, []string{symbol})
	price, ok := prices[symbol]
	if !ok || price <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.logger.With(
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
	)

	var err error
	if side == models.SideBuy {
		err = s.ledger.applyBuy(symbol, quantity, price)
	} else {
		err = s.ledger.applySell(symbol, quantity, price)
	}
	if err != nil {
		l.Warn("Trade rejected", zap.Error(err))
		return nil, err
	}

	trade := models.Trade{
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Time:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.db.WithContext(ctx).Create(&trade).Error; err != nil {
		// The ledger mutation already happened; keep going but log it.
		l.Error("Failed to append trade to log", zap.Error(err))
	}

	s.performance.TradesCount++
	s.ledger.recompute(prices)

	l.Info("Trade executed",
		zap.Float64("cash", s.ledger.cash),
		zap.Float64("equity", s.ledger.equity),
		zap.Int("trades_count", s.performance.TradesCount),
	)
	return &trade, nil
}

// Snapshot marks the account against fresh quotes and returns it.
func (s *Service) Snapshot(ctx context.Context) models.AccountSnapshot {
	s.mu.Lock()
	held := make([]string, 0, len(s.ledger.positions))
	for symbol := range s.ledger.positions {
		held = append(held, symbol)
	}
	s.mu.Unlock()

	var prices map[string]float64
	if len(held) > 0 {
		prices = s.client.Lookup(ctx, held)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.recompute(prices)
	return s.ledger.snapshot()
}

// Performance returns the session counters.
func (s *Service) Performance() models.Performance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.performance
}

// LastTrade returns the most recent trade, or nil if none were executed.
func (s *Service) LastTrade() (*models.Trade, error) {
	var trade models.Trade
	err := s.db.Order("id desc").First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read last trade: %w", err)
	}
	return &trade, nil
}

// TradeLog returns the full trade log, most recent first.
func (s *Service) TradeLog() ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Order("id desc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to read trade log: %w", err)
	}
	return trades, nil
}

// Risk returns the current risk settings.
func (s *Service) Risk() models.RiskSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.risk
}

// UpdateRisk applies a partial update; nil fields keep their current value.
// The settings are advisory, nothing in the trade path enforces them.
func (s *Service) UpdateRisk(update models.RiskUpdate) models.RiskSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update.PositionSize != nil {
		s.risk.PositionSize = *update.PositionSize
	}
	if update.MaxDailyLoss != nil {
		s.risk.MaxDailyLoss = *update.MaxDailyLoss
	}
	if update.StopLossPct != nil {
		s.risk.StopLossPct = *update.StopLossPct
	}
	return s.risk
}

// Reset clears the account back to the given balance, zeroes the counters
// and truncates the trade log. A balance of 0 or less keeps the configured
// starting balance.
func (s *Service) Reset(ctx context.Context, balance float64) (models.AccountSnapshot, error) {
	if balance <= 0 {
		balance = s.startingBalance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.Trade{}).Error; err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("failed to clear trade log: %w", err)
	}

	s.ledger.reset(balance)
	s.performance = models.Performance{}

	s.logger.Info("Account reset", zap.Float64("balance", balance))
	return s.ledger.snapshot(), nil
}

// Watchlist returns a copy of the current watchlist, in order.
func (s *Service) Watchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchlistLocked()
}

// AddSymbol adds a symbol to the watchlist; duplicates are a no-op.
// Symbols are upper-cased before insertion.
func (s *Service) AddSymbol(symbol string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addSymbolLocked(symbol)
	return s.watchlistLocked()
}

// RemoveSymbol removes a symbol from the watchlist if present.
func (s *Service) RemoveSymbol(symbol string) []string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.watchlist {
		if existing == symbol {
			s.watchlist = append(s.watchlist[:i], s.watchlist[i+1:]...)
			break
		}
	}
	return s.watchlistLocked()
}

// LivePrices looks up current quotes for the given symbols, defaulting to
// the watchlist when none are given. Best-effort like the underlying client.
func (s *Service) LivePrices(ctx context.Context, symbols []string) map[string]float64 {
	if len(symbols) == 0 {
		symbols = s.Watchlist()
	}
	return s.client.Lookup(ctx, symbols)
}

func (s *Service) addSymbolLocked(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return
	}
	for _, existing := range s.watchlist {
		if existing == symbol {
			return
		}
	}
	s.watchlist = append(s.watchlist, symbol)
}

func (s *Service) watchlistLocked() []string {
	out := make([]string, len(s.watchlist))
	copy(out, s.watchlist)
	return out
}
