package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at process start and passed by reference into every
// constructor. Resolvers never read the environment themselves.
type Config struct {
	Env      string
	LogLevel string
	Addr     string
	APIToken string

	// Timeout bounds every outbound provider call.
	Timeout time.Duration
	// CacheTTL is the validity window shared by all resolvers.
	CacheTTL time.Duration
	// MaxRetries is declared for compatibility; the WHOIS chain falls back
	// to the next provider rather than retrying the same one.
	MaxRetries    int
	RatePerSecond float64

	Whois     WhoisConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Collector CollectorConfig
}

// WhoisConfig configures the commercial WHOIS provider.
type WhoisConfig struct {
	APIKey           string
	BaseURL          string
	BreakerThreshold int
}

// CacheConfig selects the cache backend: "memory", "redis" or "postgres".
type CacheConfig struct {
	Backend string
}

// RedisConfig captures connection settings for the Redis cache backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig captures connection settings for the Postgres cache backend.
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// KafkaConfig enables the report sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CollectorConfig selects how in-page artifacts are gathered:
// "static" (HTTP fetch + HTML parse), "browser" (headless Chrome) or "off".
type CollectorConfig struct {
	Mode    string
	Timeout time.Duration
	// ChromePath overrides the Chrome binary used in browser mode.
	ChromePath string
}

const (
	DefaultWhoisBaseURL = "https://api.apilayer.com/whois/query"
	DefaultTimeout      = 10 * time.Second
	DefaultCacheTTL     = time.Hour
	DefaultMaxRetries   = 3
)

// Load seeds the environment from a .env file when one exists, then reads it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	ttlHours := getenvFloat("CACHE_TTL_HOURS", -1)
	if ttlHours < 0 {
		ttlHours = getenvFloat("CACHE_DURATION_HOURS", DefaultCacheTTL.Hours())
	}

	return Config{
		Env:           getenv("APP_ENV", "development"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Addr:          getenv("FORENSICS_ADDR", ":8080"),
		APIToken:      os.Getenv("API_TOKEN"),
		Timeout:       getenvMillis("API_TIMEOUT_MS", DefaultTimeout),
		CacheTTL:      time.Duration(ttlHours * float64(time.Hour)),
		MaxRetries:    getenvInt("MAX_RETRIES", DefaultMaxRetries),
		RatePerSecond: getenvFloat("PROVIDER_RATE_PER_SEC", 2),
		Whois: WhoisConfig{
			APIKey:           firstNonEmpty(os.Getenv("APILAYER_API_KEY"), os.Getenv("API_KEY")),
			BaseURL:          getenv("WHOIS_API_BASE_URL", DefaultWhoisBaseURL),
			BreakerThreshold: getenvInt("PRIMARY_BREAKER_THRESHOLD", 5),
		},
		Cache: CacheConfig{
			Backend: getenv("CACHE_BACKEND", "memory"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getenvInt("DATABASE_MAX_CONNS", 5)),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_REPORT_TOPIC", "forensics.reports"),
		},
		Collector: CollectorConfig{
			Mode:       getenv("COLLECTOR_MODE", "static"),
			Timeout:    getenvMillis("COLLECTOR_TIMEOUT_MS", 15*time.Second),
			ChromePath: os.Getenv("CHROME_PATH"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return v
	}
	return fallback
}

func getenvMillis(key string, fallback time.Duration) time.Duration {
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
