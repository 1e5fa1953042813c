package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Fees     FeesConfig
	Market   MarketConfig
	Line     LineConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// FeesConfig holds the trading cost rates. Both rates may be overridden
// (including to zero) without touching ledger logic.
type FeesConfig struct {
	FeeRate decimal.Decimal // broker fee, both sides
	TaxRate decimal.Decimal // securities transaction tax, sell only
}

// MarketConfig holds quote retrieval and benchmark configuration.
type MarketConfig struct {
	QuoteTTL    time.Duration // freshness window for cached quotes
	RefreshSpec string        // cron spec for the background quote refresh
	Benchmarks  []string      // fixed benchmark ETF codes for the leaderboard
}

// LineConfig holds LINE messaging channel configuration. The channel
// access token is stored encrypted in the settings table; only the
// webhook secret and the fernet key live in the environment.
type LineConfig struct {
	ChannelSecret string
	FernetKey     string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	feeRate, err := decimal.NewFromString(getEnv("FEE_RATE", "0.001425"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEE_RATE: %w", err)
	}
	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.003"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE: %w", err)
	}

	quoteTTL, err := time.ParseDuration(getEnv("QUOTE_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TTL: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/stock_ledger.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Fees: FeesConfig{
			FeeRate: feeRate,
			TaxRate: taxRate,
		},
		Market: MarketConfig{
			QuoteTTL:    quoteTTL,
			RefreshSpec: getEnv("QUOTE_REFRESH_SPEC", "@every 15m"),
			Benchmarks:  splitList(getEnv("BENCHMARK_ETFS", "0050,0056,00878")),
		},
		Line: LineConfig{
			ChannelSecret: os.Getenv("LINE_CHANNEL_SECRET"),
			FernetKey:     os.Getenv("FERNET_KEY"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitList splits a comma-separated env value, dropping empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
