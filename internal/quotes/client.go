package quotes

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"paper-trade-bot-go/internal/config"
)

// coinIDs maps watchlist symbols to the coin identifiers understood by the
// quote source. Symbols without an entry can never be priced.
var coinIDs = map[string]string{
	"BTC/USD":   "bitcoin",
	"ETH/USD":   "ethereum",
	"SOL/USD":   "solana",
	"ADA/USD":   "cardano",
	"DOGE/USD":  "dogecoin",
	"XRP/USD":   "ripple",
	"LTC/USD":   "litecoin",
	"DOT/USD":   "polkadot",
	"AVAX/USD":  "avalanche-2",
	"LINK/USD":  "chainlink",
	"MATIC/USD": "matic-network",
}

// ClientInterface defines the quote source used by the trading core.
//
// Lookup is best-effort: it returns whatever prices it could resolve and
// omits the rest. It never returns an error; a total upstream failure
// yields an empty map.
type ClientInterface interface {
	Lookup(ctx context.Context, symbols []string) map[string]float64
}

// Client fetches USD prices from the CoinGecko simple-price endpoint.
// It implements ClientInterface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new quote source client.
func NewClient(cfg *config.Quotes, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger.Named("quotes"),
		limiter: limiter,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Lookup resolves current USD prices for the given symbols. Symbols that are
// unmapped, unpriced upstream, or priced non-positively are omitted from the
// result. Network and decode failures are logged and produce an empty map.
func (c *Client) Lookup(ctx context.Context, symbols []string) map[string]float64 {
	prices := make(map[string]float64)

	// Resolve the coin ids to request; keep the reverse mapping so the
	// response can be keyed by symbol again.
	bySymbol := make(map[string]string, len(symbols))
	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		id, ok := coinIDs[strings.ToUpper(symbol)]
		if !ok {
			continue
		}
		bySymbol[strings.ToUpper(symbol)] = id
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return prices
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("Rate limiter wait aborted", zap.Error(err))
		return prices
	}

	// Response shape: {"bitcoin": {"usd": 61234.5}, ...}
	var result map[string]map[string]float64

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("vs_currencies", "usd").
		SetResult(&result).
		Get("/simple/price")
	if err != nil {
		c.logger.Warn("Quote lookup failed", zap.Error(err), zap.Strings("ids", ids))
		return prices
	}
	if resp.IsError() {
		c.logger.Warn("Quote source returned an error status",
			zap.String("status", resp.Status()),
			zap.Strings("ids", ids))
		return prices
	}

	for symbol, id := range bySymbol {
		quote, ok := result[id]
		if !ok {
			continue
		}
		price, ok := quote["usd"]
		if !ok || price <= 0 {
			continue
		}
		prices[symbol] = price
	}

	c.logger.Debug("Quote lookup complete",
		zap.Int("requested", len(ids)),
		zap.Int("resolved", len(prices)))

	return prices
}
