package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"gamescoreworker/config"
	"gamescoreworker/helpers"
	"gamescoreworker/internal/scraper"
	"gamescoreworker/logger"
	"gamescoreworker/services/cache"
	"gamescoreworker/services/publisher"
	"gamescoreworker/services/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	helpers.Client.Timeout = cfg.RequestTimeout

	log.Info().
		Str("environment", cfg.Environment).
		Str("output", cfg.CSVFilename).
		Dur("request_delay", cfg.RequestDelay).
		Int("start_page", cfg.StartPage).
		Msg("Starting scrape run")

	ctx := context.Background()
	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	recordStore := store.New(cfg.CSVFilename)
	metrics := scraper.NewMetrics()
	detail := scraper.NewDetailFetcher(cfg, services.Cache, metrics)
	pages := scraper.NewPageScraper(cfg, detail, metrics)
	driver := scraper.NewDriver(cfg, recordStore, pages, services.Publisher, metrics)

	summary := driver.Run()

	log.Info().
		Str("state", summary.State.String()).
		Int("pages_processed", summary.PagesProcessed).
		Int("new_records", summary.NewRecords).
		Int("skipped", summary.Skipped).
		Str("output", cfg.CSVFilename).
		Msg("Run finished")

	if summary.State == scraper.StateFetchError {
		log.Error().Err(summary.Err).Msg("Run terminated on listing fetch error")
		os.Exit(1)
	}
}

// Services holds the optional side services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup closes all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices wires the config-gated services; either may stay nil
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services
}
