package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/prodfloor/internal/api/catalog"
	"github.com/cuongbtq/prodfloor/internal/api/domain"
	"github.com/cuongbtq/prodfloor/internal/api/handler"
	"github.com/cuongbtq/prodfloor/internal/api/listing"
	"github.com/cuongbtq/prodfloor/internal/api/router"
	"github.com/cuongbtq/prodfloor/internal/api/storage"
	"github.com/cuongbtq/prodfloor/internal/config"
	"github.com/cuongbtq/prodfloor/shared/logger"
	"github.com/cuongbtq/prodfloor/shared/postgresql"
	"github.com/cuongbtq/prodfloor/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// jobStore is what the API needs from a repository driver
type jobStore interface {
	catalog.Source
	handler.JobFinder
	handler.HealthChecker
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("repository_driver", cfg.Repository.Driver),
		slog.Int("page_size", cfg.Listing.PageSize),
		slog.Duration("cache_ttl", cfg.Listing.CacheTTL),
	)

	store, closeStore, err := initStore(cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer closeStore()

	snapshot := catalog.NewSnapshot(store, cfg.Listing.CacheTTL, appLogger.Logger)

	listingService, err := listing.NewService(snapshot, cfg.Listing.PageSize, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize listing service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		appLogger.Info("RabbitMQ connection established")

		watcher := catalog.NewWatcher(rabbitClient, snapshot, cfg.RabbitMQ.Consumer.Tag, cfg.RabbitMQ.Consumer.PrefetchCount, appLogger.Logger)
		go func() {
			// cache_ttl still expires the snapshot if the watcher gives up
			if err := watcher.Run(ctx); err != nil {
				appLogger.Error("Catalog watcher failed", slog.Any("error", err))
			}
		}()
	}

	r := initRouter(cfg, appLogger.Logger, listingService, store)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.Duration("read_timeout", cfg.Server.ReadTimeout),
			slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down",
			slog.String("signal", sig.String()),
		)
	case err := <-serverErr:
		appLogger.Error("Server failed to start", slog.Any("error", err))
		return err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initStore builds the repository selected by repository.driver
func initStore(cfg *config.Config, logger *slog.Logger) (jobStore, func(), error) {
	switch cfg.Repository.Driver {
	case config.DriverMemory:
		seed := make([]domain.Job, len(cfg.Repository.Seed))
		for i, s := range cfg.Repository.Seed {
			seed[i] = domain.Job{JobID: s.ID, Name: s.Name, JobType: s.JobType}
		}

		logger.Info("Using in-memory job repository", slog.Int("seeded_jobs", len(seed)))
		return storage.NewMemoryRepository(seed...), func() {}, nil

	default:
		dbClient, err := initPostgreSQL(&cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		logger.Info("Database connection established")

		closeDB := func() {
			stats := dbClient.Stats()
			logger.Info("Closing database pool",
				slog.Int("open_conns", stats.OpenConnections),
				slog.Int64("wait_count", stats.WaitCount),
			)
			dbClient.Close()
		}
		return storage.NewStorage(dbClient), closeDB, nil
	}
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(cfg.ClientConfig(), logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, listingService *listing.Service, store jobStore) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger:  logger,
		Listing: listingService,
		Finder:  store,
		Health:  store,
		Service: cfg.App.Name,
	})
}
