package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	infraconfig "marketdata-service/internal/infrastructure/config"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	LogFile  string
	// API
	Port               string
	CORSAllowedOrigins []string
	// Storage
	Storage     string
	DatabaseURL string
	SQLitePath  string
	// Upstream provider
	Provider                string
	FinnhubURL              string
	FinnhubAPIKey           string
	UpstreamTimeout         time.Duration
	UpstreamRetryMaxElapsed time.Duration
	UpstreamSingleflight    bool
	// Redis (cache + streams)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheBackend  string
	CacheTTL      time.Duration
	// Publishing
	PublishRetryMaxElapsed time.Duration
	PublishFailFatal       bool
	// Normalization
	CountryPlaceholders bool
	// Worker (stream consumer)
	WorkerStreams   []string
	WorkerPoll      time.Duration
	WorkerBatchSize int
	WorkerStartID   string

	// WorkerHealthAddr enables the grpc.health.v1 endpoint of the worker.
	WorkerHealthAddr string
}

// source resolves a key from the environment first, then from the optional
// YAML file, then from the default.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := s.file[key]; v != "" {
		return v
	}
	return def
}

func (s source) atoi(key string, def int) int {
	i, err := strconv.Atoi(s.get(key, ""))
	if err != nil {
		return def
	}
	return i
}

func (s source) ms(key string, def time.Duration) time.Duration {
	ms := s.atoi(key, int(def/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

func (s source) boolean(key string, def bool) bool {
	b, err := strconv.ParseBool(s.get(key, ""))
	if err != nil {
		return def
	}
	return b
}

func (s source) list(key string, def []string) []string {
	v := s.get(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads environment variables, overlays the YAML file named by
// CONFIG_FILE (keys are the environment variable names, the environment
// wins) and applies defaults.
func Load() (Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	return fromSource(src), nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return out, nil
}

func fromSource(s source) Config {
	return Config{
		Env:                     s.get("ENV", "local"),
		LogLevel:                s.get("LOG_LEVEL", "info"),
		LogFile:                 s.get("LOG_FILE", ""),
		Port:                    s.get("PORT", infraconfig.DefaultHTTPPort),
		CORSAllowedOrigins:      s.list("CORS_ALLOWED_ORIGINS", []string{"http://127.0.0.1:8050", "http://localhost:8050"}),
		Storage:                 s.get("STORAGE", "pg"),
		DatabaseURL:             s.get("DATABASE_URL", ""),
		SQLitePath:              s.get("SQLITE_PATH", infraconfig.DefaultSQLitePath),
		Provider:                s.get("PROVIDER", "finnhub"),
		FinnhubURL:              s.get("FINNHUB_URL", s.get("FINHUB_URL", infraconfig.DefaultFinnhubURL)),
		FinnhubAPIKey:           s.get("FINNHUB_API_KEY", ""),
		UpstreamTimeout:         s.ms("UPSTREAM_TIMEOUT_MS", infraconfig.DefaultUpstreamTimeout),
		UpstreamRetryMaxElapsed: s.ms("UPSTREAM_RETRY_MAX_ELAPSED_MS", 0),
		UpstreamSingleflight:    s.boolean("UPSTREAM_SINGLEFLIGHT", false),
		RedisAddr:               redisAddr(s),
		RedisPassword:           s.get("REDIS_PASSWORD", ""),
		RedisDB:                 s.atoi("REDIS_DB", 0),
		CacheBackend:            s.get("CACHE_BACKEND", "redis"),
		CacheTTL:                s.ms("CACHE_TTL_MS", infraconfig.DefaultCacheTTL),
		PublishRetryMaxElapsed:  s.ms("PUBLISH_RETRY_MAX_ELAPSED_MS", 0),
		PublishFailFatal:        s.boolean("PUBLISH_FAIL_FATAL", false),
		CountryPlaceholders:     s.boolean("COUNTRY_PLACEHOLDERS", true),
		WorkerStreams:           s.list("WORKER_STREAMS", nil),
		WorkerPoll:              s.ms("WORKER_POLL_MS", infraconfig.DefaultWorkerPoll),
		WorkerBatchSize:         s.atoi("WORKER_BATCH_LIMIT", infraconfig.DefaultWorkerBatch),
		WorkerStartID:           s.get("WORKER_START_ID", infraconfig.DefaultWorkerStartID),
		WorkerHealthAddr:        s.get("WORKER_HEALTH_ADDR", ""),
	}
}

// redisAddr prefers REDIS_ADDR and falls back to REDIS_HOST:REDIS_PORT.
func redisAddr(s source) string {
	if addr := s.get("REDIS_ADDR", ""); addr != "" {
		return addr
	}
	return net.JoinHostPort(
		s.get("REDIS_HOST", infraconfig.DefaultRedisHost),
		s.get("REDIS_PORT", infraconfig.DefaultRedisPort),
	)
}

// Validate reports settings the process cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	switch c.Storage {
	case "pg":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for STORAGE=pg"))
		}
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for STORAGE=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE=%q", c.Storage))
	}
	switch c.Provider {
	case "finnhub":
		if c.FinnhubURL == "" {
			errs = append(errs, errors.New("FINNHUB_URL cannot be empty"))
		}
	case "fake":
	default:
		errs = append(errs, fmt.Errorf("unsupported PROVIDER=%q", c.Provider))
	}
	switch c.CacheBackend {
	case "redis", "none":
	default:
		errs = append(errs, fmt.Errorf("unsupported CACHE_BACKEND=%q", c.CacheBackend))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL_MS must be positive"))
	}
	if c.WorkerBatchSize <= 0 {
		errs = append(errs, errors.New("WORKER_BATCH_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}
