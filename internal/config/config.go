package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPAddr    string
	GRPCAddr    string
	CatalogAddr string
	// CatalogURL points the cart at a catalog backend. Empty means the
	// embedded backend served on CatalogAddr.
	CatalogURL string

	StoreDriver    string
	RedisAddr      string
	CartStorageKey string

	CatalogDriver string
	CatalogDSN    string

	Locale   string
	Currency string

	CatalogTimeout     time.Duration
	BreakerFailures    int
	BreakerCooldown    time.Duration
	CatalogLatency     time.Duration
	CatalogFailureRate float64

	WorkerCount     int
	QueueSize       int
	ShutdownTimeout time.Duration
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("GRPC_ADDR", ":50051"),
		CatalogAddr: getEnv("CATALOG_ADDR", ":3333"),
		CatalogURL:  getEnv("CATALOG_URL", ""),

		StoreDriver:    getEnv("STORE_DRIVER", "redis"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		CartStorageKey: getEnv("CART_STORAGE_KEY", "@RocketShoes:cart"),

		CatalogDriver: getEnv("CATALOG_DRIVER", "sqlite"),
		CatalogDSN:    getEnv("CATALOG_DSN", "file:storefront.db?_pragma=busy_timeout(5000)"),

		Locale:   getEnv("LOCALE", "pt-BR"),
		Currency: getEnv("CURRENCY", "BRL"),

		CatalogTimeout:     getEnvDuration("CATALOG_TIMEOUT", 5*time.Second),
		BreakerFailures:    getEnvPositiveInt("BREAKER_FAILURES", 5),
		BreakerCooldown:    getEnvDuration("BREAKER_COOLDOWN", 10*time.Second),
		CatalogLatency:     getEnvDuration("CATALOG_LATENCY", 0),
		CatalogFailureRate: getEnvFloat("CATALOG_FAILURE_RATE", 0),

		WorkerCount:     getEnvPositiveInt("WORKER_COUNT", 4),
		QueueSize:       getEnvPositiveInt("QUEUE_SIZE", 1000),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

// CatalogBaseURL is the address the cart uses to reach the catalog.
func (c Config) CatalogBaseURL() string {
	if c.CatalogURL != "" {
		return c.CatalogURL
	}
	addr := c.CatalogAddr
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getEnvPositiveInt is getEnvInt for counts that must be at least 1.
func getEnvPositiveInt(key string, def int) int {
	if n := getEnvInt(key, def); n >= 1 {
		return n
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
