package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultFinnhubURL      = "https://finnhub.io/api/v1"
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultCacheTTL        = time.Hour
	DefaultRedisHost       = "localhost"
	DefaultRedisPort       = "6379"
	DefaultSQLitePath      = "marketdata.db"
	DefaultWorkerPoll      = 500 * time.Millisecond
	DefaultWorkerBatch     = 100
	DefaultWorkerStartID   = "0"
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultLogMaxSizeMB    = 100
	DefaultLogMaxBackups   = 10
	DefaultLogMaxAgeDays   = 14
)
