// Package config loads gateway and ticket-printer settings from the
// environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ServiceName string
	HTTPPort    string

	SalesAPIURL     string
	SalesAPITimeout time.Duration

	SearchQuietPeriod time.Duration
	SearchLimit       int
	SearchCacheTTL    time.Duration
	RedisAddr         string
	RedisPassword     string

	KafkaBrokers  []string
	ReceiptTopic  string
	TicketGroupID string
	TicketDir     string

	StoreName        string
	SessionIdleTTL   time.Duration
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
	MaxRequestBodySz int64

	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
}

// Load reads .env outside production and builds a Config from the
// environment. Variables already set in the environment take precedence.
func Load() (*Config, error) {
	env := getEnv("ENV", "development")
	if env != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: could not load .env: %v", err)
		}
	}

	var errs []error
	cfg := &Config{
		Env:         env,
		ServiceName: getEnv("OTEL_SERVICE_NAME", "pos-gateway"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),

		SalesAPIURL:     getEnv("SALES_API_URL", "http://localhost:3000/api"),
		SalesAPITimeout: getDuration("SALES_API_TIMEOUT", 30*time.Second, &errs),

		SearchQuietPeriod: getDuration("SEARCH_QUIET_PERIOD", 300*time.Millisecond, &errs),
		SearchLimit:       getInt("SEARCH_LIMIT", 10, &errs),
		SearchCacheTTL:    getDuration("SEARCH_CACHE_TTL", 30*time.Second, &errs),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		ReceiptTopic:  getEnv("RECEIPT_TOPIC", "sale-receipts"),
		TicketGroupID: getEnv("TICKET_GROUP_ID", "ticket-printer"),
		TicketDir:     os.Getenv("TICKET_OUTPUT_DIR"),

		StoreName:        os.Getenv("STORE_NAME"),
		SessionIdleTTL:   getDuration("SESSION_IDLE_TTL", 2*time.Hour, &errs),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		MaxRequestBodySz: 1 << 20, // 1MB

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.SearchLimit <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_LIMIT must be positive, got %d", cfg.SearchLimit))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
