package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Target site configuration
	BaseURL           string
	BrowseURLTemplate string

	// Output configuration
	CSVFilename string

	// Request pacing
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	StartPage      int

	// Redis configuration (publishing is disabled when RedisAddr is empty)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration (rate-limit fencing is disabled when empty)
	MemcacheAddr       string
	RateLimitBlockTime time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	requestDelay, _ := strconv.Atoi(getEnv("REQUEST_DELAY_SECONDS", "1"))
	requestTimeout, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "20"))
	startPage, _ := strconv.Atoi(getEnv("START_PAGE", "1"))
	blockTime, _ := strconv.Atoi(getEnv("RATE_LIMIT_BLOCK_SECONDS", "500"))

	return &Config{
		BaseURL:              getEnv("BASE_URL", "https://www.metacritic.com"),
		BrowseURLTemplate:    getEnv("BROWSE_URL_TEMPLATE", "https://www.metacritic.com/browse/game/all/all/all-time/new/?releaseYearMin=1958&releaseYearMax=2025&page=%d"),
		CSVFilename:          getEnv("CSV_FILENAME", "games.csv"),
		RequestDelay:         time.Duration(requestDelay) * time.Second,
		RequestTimeout:       time.Duration(requestTimeout) * time.Second,
		StartPage:            startPage,
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "gamescores"),
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RateLimitBlockTime:   time.Duration(blockTime) * time.Second,
		Environment:          getEnv("GAMESCORE_ENVIRONMENT", "development"),
	}
}

// Validate ensures the configuration values are coherent
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if !strings.Contains(c.BrowseURLTemplate, "%d") {
		return fmt.Errorf("browse URL template must contain a %%d page placeholder")
	}
	if c.CSVFilename == "" {
		return fmt.Errorf("csv filename cannot be empty")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.StartPage < 1 {
		return fmt.Errorf("start page must be at least 1")
	}
	if c.RedisAddr != "" && c.RedisStream == "" {
		return fmt.Errorf("redis stream cannot be empty when redis is enabled")
	}
	if c.RateLimitBlockTime < 0 {
		return fmt.Errorf("rate limit block time cannot be negative")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
