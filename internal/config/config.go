package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Logger   Logger   `mapstructure:"logger"`
	Database Database `mapstructure:"database"`
	Quotes   Quotes   `mapstructure:"quotes"`
	Trading  Trading  `mapstructure:"trading"`
	Risk     Risk     `mapstructure:"risk"`
}

// Server holds the configuration for the HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the configuration for the trade-log database.
// The default DSN is an in-memory sqlite database, so the log does not
// survive a restart.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Quotes holds the configuration for the quote source client.
type Quotes struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Trading holds the configuration for the simulated account and the price feed.
type Trading struct {
	StartingBalance float64  `mapstructure:"starting_balance"`
	TickInterval    int      `mapstructure:"tick_interval"`
	Watchlist       []string `mapstructure:"watchlist"`
}

// Risk holds the default risk settings served by the settings endpoint.
type Risk struct {
	PositionSize float64 `mapstructure:"position_size"`
	MaxDailyLoss float64 `mapstructure:"max_daily_loss"`
	StopLossPct  float64 `mapstructure:"stop_loss_pct"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values so the binary runs without a config file.
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("database.dsn", "file::memory:?cache=shared")
	viper.SetDefault("quotes.base_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("quotes.rate_limit", 10) // requests per second
	viper.SetDefault("quotes.rate_limit_burst", 5)
	viper.SetDefault("quotes.timeout_seconds", 5)
	viper.SetDefault("trading.starting_balance", 10000.0)
	viper.SetDefault("trading.tick_interval", 1) // seconds
	viper.SetDefault("trading.watchlist", []string{"BTC/USD", "ETH/USD", "SOL/USD"})
	viper.SetDefault("risk.position_size", 1000.0)
	viper.SetDefault("risk.max_daily_loss", 1000.0)
	viper.SetDefault("risk.stop_loss_pct", 0.05)

	if err = viper.ReadInConfig(); err != nil {
		// A missing config file is fine, the defaults above apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
