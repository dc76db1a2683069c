package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common holds settings shared by the web server and the tooling: where the
// archive lives and which query engine backs it.
type Common struct {
	LogPath    string
	NicksPath  string
	Engine     string
	SQLitePath string
	BatchSize  int
}

// Server describes HTTP-layer configuration.
type Server struct {
	Common
	BindAddr             string
	LinesPerPage         int
	TrendingTop          int
	TrendingMinFreq      int
	TrendingLookbackDays int
	FeaturedLabel        string
	FeaturedPattern      string
}

// Worker holds configuration for the Kafka -> spool ingest worker.
type Worker struct {
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	SpoolPath      string
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// LoadServer builds a Server config from environment variables.
func LoadServer() (*Server, error) {
	c := &Server{
		Common:               loadCommon(),
		BindAddr:             getEnv("BIND_ADDR", "0.0.0.0:5000"),
		LinesPerPage:         getInt("SEARCH_LINES_PER_PAGE", 25),
		TrendingTop:          getInt("TRENDING_TOP", 10),
		TrendingMinFreq:      getInt("TRENDING_MIN_FREQ", 10),
		TrendingLookbackDays: getInt("TRENDING_LOOKBACK_DAYS", 7),
		FeaturedLabel:        getEnv("FEATURED_LABEL", "tnaks"),
		FeaturedPattern:      getEnv("FEATURED_PATTERN", `\b[Tt][Nn][Aa][Kk]`),
	}

	if c.LinesPerPage <= 0 {
		return nil, fmt.Errorf("SEARCH_LINES_PER_PAGE must be positive")
	}
	if c.TrendingTop <= 0 {
		return nil, fmt.Errorf("TRENDING_TOP must be positive")
	}
	if c.TrendingMinFreq <= 0 {
		return nil, fmt.Errorf("TRENDING_MIN_FREQ must be positive")
	}
	if c.TrendingLookbackDays <= 0 {
		return nil, fmt.Errorf("TRENDING_LOOKBACK_DAYS must be positive")
	}
	if err := validateCommon(c.Common); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "chat_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "chat-ingest"),
		SpoolPath:      getEnv("SPOOL_PATH", "spool/incoming.jsonl"),
		DedupeCapacity: getInt("INGEST_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("INGEST_DEDUPE_TTL", "24h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.SpoolPath == "" {
		return nil, fmt.Errorf("SPOOL_PATH must not be empty")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("INGEST_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		LogPath:    getEnv("LOG_ARCHIVE_PATH", "static/log.json"),
		NicksPath:  getEnv("NICKS_PATH", ""),
		Engine:     getEnv("QUERY_ENGINE", "sqlite-memory"),
		SQLitePath: getEnv("SQLITE_PATH", "logs.db"),
		BatchSize:  getInt("SQLITE_BATCH_SIZE", 1000),
	}
}

func validateCommon(c Common) error {
	if c.LogPath == "" {
		return fmt.Errorf("LOG_ARCHIVE_PATH must not be empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("SQLITE_BATCH_SIZE must be positive")
	}
	switch c.Engine {
	case "memory", "sqlite-memory", "sqlite-file":
	default:
		return fmt.Errorf("QUERY_ENGINE must be one of memory, sqlite-memory, sqlite-file")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
