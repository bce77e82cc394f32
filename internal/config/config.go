package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDBPath          = "./jewelry.db"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultProfitMargin    = 0.20
	defaultRepriceThresh   = 0.05
	defaultRateCacheTTL    = 30 * time.Second
	defaultKafkaTopic      = "inventory-prices"
	defaultRateLimitRPS    = 10.0
	defaultRateLimitBurst  = 20
	RateFeedStored         = "stored"
	RateFeedSimulated      = "simulated"
	defaultRateFeed        = RateFeedStored
	productionEnvironment  = "production"
	developmentEnvironment = "development"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env      string
	Port     string
	DBPath   string
	LogLevel string
	LogFile  string

	ProfitMargin     float64
	RepriceThreshold float64
	RepriceInterval  time.Duration
	RateFeed         string

	RedisAddr    string
	RateCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	RateLimitRPS   float64
	RateLimitBurst int

	// Warnings collects values that could not be parsed and fell back to defaults.
	Warnings []string
}

// IsDev reports whether the service runs outside production.
func (c Config) IsDev() bool {
	return c.Env != productionEnvironment
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// A missing file is fine; production should use real env injection.
	var warnings []string
	if err := loadDotEnv(".env"); err != nil {
		warnings = append(warnings, fmt.Sprintf("load .env: %v", err))
	}

	p := parser{}
	cfg := Config{
		Env:              getenv("ENV", developmentEnvironment),
		Port:             strings.TrimPrefix(getenv("PORT", defaultPort), ":"),
		DBPath:           getenv("DB_PATH", defaultDBPath),
		LogLevel:         getenv("LOG_LEVEL", defaultLogLevel),
		LogFile:          os.Getenv("LOG_FILE"),
		ProfitMargin:     p.fraction("PROFIT_MARGIN", defaultProfitMargin),
		RepriceThreshold: p.fraction("REPRICE_THRESHOLD", defaultRepriceThresh),
		RepriceInterval:  p.duration("REPRICE_INTERVAL", 0),
		RateFeed:         getenv("RATE_FEED", defaultRateFeed),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RateCacheTTL:     p.duration("RATE_CACHE_TTL", defaultRateCacheTTL),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       getenv("KAFKA_TOPIC", defaultKafkaTopic),
		RateLimitRPS:     p.float("RATE_LIMIT_RPS", defaultRateLimitRPS),
		RateLimitBurst:   p.int("RATE_LIMIT_BURST", defaultRateLimitBurst),
	}

	if feed, err := ParseRateFeed(cfg.RateFeed); err != nil {
		p.warn("RATE_FEED: %v, using %s", err, defaultRateFeed)
		cfg.RateFeed = defaultRateFeed
	} else {
		cfg.RateFeed = feed
	}

	cfg.Warnings = append(warnings, p.warnings...)
	return cfg
}

// ParseRateFeed normalizes a rate feed name. Only stored and simulated are accepted.
func ParseRateFeed(raw string) (string, error) {
	switch feed := strings.ToLower(strings.TrimSpace(raw)); feed {
	case RateFeedStored, RateFeedSimulated:
		return feed, nil
	default:
		return "", fmt.Errorf("%q is not stored or simulated", raw)
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type parser struct {
	warnings []string
}

func (p *parser) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *parser) float(key string, def float64) float64 {
	raw := getenv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.warn("%s=%q is not numeric, using %v", key, raw, def)
		return def
	}
	return v
}

func (p *parser) fraction(key string, def float64) float64 {
	v := p.float(key, def)
	if v < 0 || v >= 1 {
		p.warn("%s=%v must be in [0, 1), using %v", key, v, def)
		return def
	}
	return v
}

func (p *parser) int(key string, def int) int {
	raw := getenv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.warn("%s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getenv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		p.warn("%s=%q is not a valid duration, using %s", key, raw, def)
		return def
	}
	return v
}
