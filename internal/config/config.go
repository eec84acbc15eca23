package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultDatabaseURL      = "file:staybook.db?_pragma=busy_timeout(5000)"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTTTL           = "24h"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultCommissionRate   = "0.10"
	defaultSettlementPeriod = "720h"
	defaultJobBackend       = "memory"
	defaultJobWorkers       = "4"
	defaultJobQueue         = "staybook.jobs"
	defaultGatewaySecret    = "change-me-gateway-secret"
	defaultGatewayBaseURL   = "http://localhost:8080/sandbox/pay"
	defaultQuoteTTL         = "30s"
	devCORSOrigins          = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000,http://127.0.0.1:5173"
)

// Job backends accepted by JOB_BACKEND.
const (
	JobBackendMemory   = "memory"
	JobBackendRabbitMQ = "rabbitmq"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	CommissionRate   decimal.Decimal
	SettlementPeriod time.Duration

	JobBackend  string
	JobWorkers  int
	JobQueue    string
	RabbitMQURL string

	RedisAddr string
	QuoteTTL  time.Duration

	JaegerEndpoint string

	// MetricsToken guards /metrics; empty leaves it open.
	MetricsToken      string
	MetricsAllowedIPs []string

	// CORSAllowedOrigins lists browser origins; "*" admits any origin
	// without credentials.
	CORSAllowedOrigins []string

	GatewaySecret    string
	GatewayBaseURL   string
	GatewayReturnURL string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", defaultLogFormat)))
	cfg.JobBackend = strings.ToLower(strings.TrimSpace(getEnv("JOB_BACKEND", defaultJobBackend)))
	cfg.JobQueue = strings.TrimSpace(getEnv("JOB_QUEUE", defaultJobQueue))
	cfg.RabbitMQURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.JaegerEndpoint = strings.TrimSpace(os.Getenv("JAEGER_ENDPOINT"))
	cfg.GatewaySecret = strings.TrimSpace(getEnv("GATEWAY_SECRET", defaultGatewaySecret))
	cfg.GatewayBaseURL = strings.TrimSpace(getEnv("GATEWAY_BASE_URL", defaultGatewayBaseURL))
	cfg.GatewayReturnURL = strings.TrimSpace(os.Getenv("GATEWAY_RETURN_URL"))
	cfg.MetricsToken = strings.TrimSpace(os.Getenv("METRICS_TOKEN"))
	cfg.MetricsAllowedIPs = splitList(os.Getenv("METRICS_ALLOWED_IPS"))
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if strings.TrimSpace(origins) == "" && !cfg.IsProd() {
		origins = devCORSOrigins
	}
	cfg.CORSAllowedOrigins = splitList(origins)

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.SettlementPeriod, err = parseDurationEnv("SETTLEMENT_PERIOD", defaultSettlementPeriod); err != nil {
		return nil, err
	}
	if cfg.QuoteTTL, err = parseDurationEnv("QUOTE_CACHE_TTL", defaultQuoteTTL); err != nil {
		return nil, err
	}
	if cfg.CommissionRate, err = parseDecimalEnv("COMMISSION_RATE", defaultCommissionRate); err != nil {
		return nil, err
	}
	if cfg.JobWorkers, err = parseIntEnv("JOB_WORKERS", defaultJobWorkers); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.SettlementPeriod <= 0 {
		return fmt.Errorf("SETTLEMENT_PERIOD must be > 0")
	}
	if cfg.CommissionRate.IsNegative() || cfg.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("COMMISSION_RATE must be in [0, 1)")
	}
	if cfg.JobWorkers <= 0 {
		return fmt.Errorf("JOB_WORKERS must be > 0")
	}
	switch cfg.JobBackend {
	case JobBackendMemory:
	case JobBackendRabbitMQ:
		if cfg.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when JOB_BACKEND=rabbitmq")
		}
	default:
		return fmt.Errorf("JOB_BACKEND must be one of: memory, rabbitmq")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.GatewaySecret, defaultGatewaySecret) {
			return fmt.Errorf("in prod/release GATEWAY_SECRET must be set and not default")
		}
	}

	return nil
}

// IsProd reports whether the configured environment is production-like.
func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseDecimalEnv(name, fallback string) (decimal.Decimal, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

// splitList splits a comma separated value, dropping blank items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
