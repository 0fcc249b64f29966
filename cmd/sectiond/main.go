// Sectiond is a persona-driven document intelligence daemon.
//
// It ingests PDF documents plus a persona and job-to-be-done description
// over HTTP, and returns the document sections most relevant to that
// persona, each with an extractive summary and keywords, plus
// find-similar retrieval over the indexed sections.
//
// Configuration is loaded from ~/.config/sectiond/config.yaml with
// environment variable overrides. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	sectiond
//
//	# Configure via environment
//	SERVER_PORT=9090 EMBEDDINGS_PROVIDER=tei sectiond
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/config"
	"github.com/fyrsmithlabs/sectiond/internal/embeddings"
	"github.com/fyrsmithlabs/sectiond/internal/engine"
	httpserver "github.com/fyrsmithlabs/sectiond/internal/http"
	"github.com/fyrsmithlabs/sectiond/internal/insight"
	"github.com/fyrsmithlabs/sectiond/internal/layout"
	"github.com/fyrsmithlabs/sectiond/internal/logging"
	"github.com/fyrsmithlabs/sectiond/internal/scoring"
	"github.com/fyrsmithlabs/sectiond/internal/segment"
	"github.com/fyrsmithlabs/sectiond/internal/similarity"
	"github.com/fyrsmithlabs/sectiond/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/sectiond/config.yaml)")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  sectiond           Start the sectiond daemon\n")
			fmt.Fprintf(os.Stderr, "  sectiond version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("sectiond by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the sectiond server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes the logger
//  3. Creates the embedding provider with its content-addressed cache
//  4. Wires the pipeline components into the engine
//  5. Starts the HTTP server
//  6. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	// Ensure config directory exists for first-run users
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	// Load configuration
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting sectiond",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("embedding_provider", cfg.Embeddings.Provider),
		zap.String("embedding_model", cfg.Embeddings.Model))

	// Install the OTLP meter provider behind the global meter, if a
	// collector is configured
	if cfg.Telemetry.ServiceVersion == "" || cfg.Telemetry.ServiceVersion == "dev" {
		cfg.Telemetry.ServiceVersion = version
	}
	tel, err := telemetry.New(ctx, cfg.Telemetry, logger.Named("telemetry"))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	// Initialize embedding provider
	provider, err := embeddings.NewProvider(cfg.Embeddings.ProviderConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	cached, err := embeddings.NewCachedProvider(provider, cfg.Embeddings.CacheEntries, logger.Named("embeddings"))
	if err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}
	defer func() {
		if err := cached.Close(); err != nil {
			logger.Warn("failed to close embedding provider", zap.Error(err))
		}
	}()

	logger.Info("Embedding provider initialized",
		zap.Int("dimension", cached.Dimension()),
		zap.Int("cache_entries", cfg.Embeddings.CacheEntries))

	// Wire the pipeline
	eng, err := initEngine(cfg, cached, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	// Create HTTP server
	srv, err := httpserver.NewServer(eng, logger.Named("http"), &httpserver.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	// Register metrics endpoint
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server in the background; block on context cancellation
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initEngine wires the pipeline components into an engine.
func initEngine(cfg *config.Config, embedder embeddings.Provider, logger *zap.Logger) (*engine.Engine, error) {
	extractor := layout.NewExtractor(logger.Named("layout"))

	segmenter, err := segment.NewSegmenter(cfg.Segmenter, logger.Named("segment"))
	if err != nil {
		return nil, fmt.Errorf("creating segmenter: %w", err)
	}

	scorer, err := scoring.NewScorer(cfg.Scoring, logger.Named("scoring"))
	if err != nil {
		return nil, fmt.Errorf("creating scorer: %w", err)
	}

	insights, err := insight.NewGenerator(cfg.Insights)
	if err != nil {
		return nil, fmt.Errorf("creating insight generator: %w", err)
	}

	retriever, err := similarity.NewRetriever(cfg.Similarity, logger.Named("similarity"))
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	return engine.New(cfg.Engine, extractor, segmenter, embedder, scorer, insights, retriever, logger.Named("engine"))
}
