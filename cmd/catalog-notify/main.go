// Command catalog-notify publishes a jobs-changed event so running API
// instances drop their cached job catalog. Run it after bulk loads or
// manual edits to the jobs table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/prodfloor/internal/api/catalog"
	"github.com/cuongbtq/prodfloor/internal/config"
	"github.com/cuongbtq/prodfloor/shared/logger"
	"github.com/cuongbtq/prodfloor/shared/rabbitmq"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	event := flag.String("event", "jobs.changed", "Event name to publish")
	timeout := flag.Duration("timeout", 10*time.Second, "Publish timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// the broker settings are checked even when the API runs with rabbitmq disabled
	if err := cfg.RabbitMQ.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	clientCfg := cfg.RabbitMQ.ClientConfig()
	clientCfg.PublishOnly = true

	client, err := rabbitmq.NewClient(clientCfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer client.Close()

	body, err := json.Marshal(catalog.ChangeEvent{Event: *event})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.Publish(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	appLogger.Info("Catalog change event published",
		slog.String("event", *event),
		slog.String("exchange", cfg.RabbitMQ.Exchange.Name),
	)
	return nil
}
