// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"crowdwatch/internal/adapter/storage"
	"crowdwatch/internal/config"
	"crowdwatch/internal/server"
	"crowdwatch/internal/service/analyzer"
	"crowdwatch/internal/service/scheduler"
	"crowdwatch/internal/service/source"
)

func main() {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Environment)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer natsConn.Close()

	// Initialize storage adapters
	verdictStore := storage.NewVerdictStore(db)

	// Initialize source clients
	placesClient := source.NewPlacesClient(source.PlacesConfig{
		APIKey:  cfg.Sources.GooglePlacesAPIKey,
		BaseURL: cfg.Sources.GooglePlacesURL,
		Timeout: cfg.Sources.Timeout,
	}, logger)

	socialClient := source.NewSocialClient(source.SocialConfig{
		BearerToken: cfg.Sources.TwitterBearerToken,
		BaseURL:     cfg.Sources.TwitterURL,
		Timeout:     cfg.Sources.Timeout,
	}, logger)

	// Initialize the analysis pipeline
	aggregator := analyzer.NewAggregator(placesClient, socialClient, analyzer.AggregatorConfig{
		SourceTimeout: cfg.Sources.Timeout,
	}, logger)

	classifier := analyzer.NewClassifier(analyzer.ClassifierConfig{})

	expander := analyzer.NewExpander(placesClient, placesClient, classifier, analyzer.ExpanderConfig{
		RadiusMeters: cfg.Neighbors.RadiusMeters,
		Limit:        cfg.Neighbors.Limit,
		Categories:   cfg.Neighbors.Categories,
	}, logger)

	crowdAnalyzer := analyzer.NewService(aggregator, classifier, expander, logger)

	// Initialize the batch scheduler
	crowdScheduler := scheduler.New(crowdAnalyzer, verdictStore, natsConn, scheduler.Config{
		Locations:   cfg.Scheduler.Locations,
		EventsTopic: cfg.Scheduler.EventsTopic,
	}, logger)

	if cfg.Scheduler.AutoStart {
		logger.Info().Msg("starting crowd data scheduler")
		crowdScheduler.Start(cfg.Scheduler.DefaultInterval)
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		crowdAnalyzer,
		crowdScheduler,
		verdictStore,
		natsConn,
		cfg.Scheduler.EventsTopic,
		cfg.Scheduler.DefaultInterval,
		logger,
	)

	// Start HTTP server
	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info().Msg("shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	logger.Info().Msg("shutting down services")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	crowdScheduler.Stop()

	logger.Info().Msg("shutdown complete")
}

// newLogger builds the process logger. Development gets console output,
// everything else structured JSON.
func newLogger(environment string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logger zerolog.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
