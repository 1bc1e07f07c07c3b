package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Rayane1997/app-price-tracker/config"
	"github.com/Rayane1997/app-price-tracker/internal/alert"
	"github.com/Rayane1997/app-price-tracker/internal/parser"
	"github.com/Rayane1997/app-price-tracker/internal/store"
	"github.com/Rayane1997/app-price-tracker/internal/tracker"
	"github.com/Rayane1997/app-price-tracker/logger"
	"github.com/Rayane1997/app-price-tracker/services/cache"
	"github.com/Rayane1997/app-price-tracker/services/publisher"
	"github.com/Rayane1997/app-price-tracker/services/ratelimit"
	"github.com/Rayane1997/app-price-tracker/services/worker"
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

	log.Info().
		Str("environment", cfg.Environment).
		Dur("schedule_interval", cfg.ScheduleInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Build the parser registry: dedicated site parsers plus stored
	// selector configurations for any remaining domains.
	limiter := ratelimit.NewDomainLimiter(services.Cache, cfg.DomainRateLimit)
	fetcher := parser.NewPageFetcher(limiter, cfg.RenderServiceAddr)
	registry := parser.DefaultRegistry(fetcher, cfg.FetchTimeout, cfg.RenderTimeout)
	registerStoredConfigs(ctx, registry, limiter, services.Store, fetcher, cfg)

	log.Info().
		Int("domain_count", len(registry.Domains())).
		Msg("Parser registry ready")

	engine := alert.NewEngine(services.Store, cfg.PriceDropThreshold, cfg.AlertDedupWindow)
	tr := tracker.New(services.Store, registry, engine, services.Publisher, cfg.MaxConsecutiveErrors)
	tr.SetConfigStore(services.Store)

	// Create and start worker
	w := worker.New(services.Store, tr, cfg.ScheduleInterval, cfg.WorkerConcurrency)

	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting price tracking worker")
		workerDone <- w.Start(ctx)
	}()

	// Wait for shutdown signal or worker error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Store     *store.Store
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	services.Store = st

	logger.Info("Connected to database")

	// Initialize cache service
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	if cacheService == nil {
		return nil, fmt.Errorf("failed to create cache service")
	}
	services.Cache = cacheService

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	if redisPublisher == nil {
		return nil, fmt.Errorf("failed to create redis publisher")
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}

// registerStoredConfigs layers database-driven generic parsers over the
// built-in ones and applies each config's fetch spacing to the limiter.
// A bad config is logged and skipped rather than blocking startup.
func registerStoredConfigs(ctx context.Context, registry *parser.Registry, limiter *ratelimit.DomainLimiter, st *store.Store, fetcher parser.Fetcher, cfg *config.Config) {
	configs, err := st.ActiveParserConfigs(ctx)
	if err != nil {
		logger.Warn("Failed to load parser configs: %v", err)
		return
	}

	for _, pc := range configs {
		timeout := cfg.FetchTimeout
		if pc.RequiresJS {
			timeout = cfg.RenderTimeout
		}
		generic, err := parser.NewGenericParser(pc.GenericConfig(), fetcher, timeout)
		if err != nil {
			logger.Warn("Skipping parser config for %s: %v", pc.Domain, err)
			continue
		}
		registry.RegisterGeneric(generic)
		if pc.RateLimitSeconds > 0 {
			limiter.SetSpacing(pc.NormalizedDomain(), pc.RateLimit())
		}
	}
}
