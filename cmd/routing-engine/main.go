package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/routing-engine/internal/analyzer"
	"github.com/tributary-ai/routing-engine/internal/config"
	"github.com/tributary-ai/routing-engine/internal/engine"
	"github.com/tributary-ai/routing-engine/internal/execution"
	"github.com/tributary-ai/routing-engine/internal/providers/anthropic"
	"github.com/tributary-ai/routing-engine/internal/providers/openai"
	"github.com/tributary-ai/routing-engine/internal/registry"
	"github.com/tributary-ai/routing-engine/internal/retrieval"
	"github.com/tributary-ai/routing-engine/internal/scoring"
	"github.com/tributary-ai/routing-engine/internal/server"
)

// Application bundles the wired components of the routing engine service.
type Application struct {
	config   *config.Config
	registry *registry.Registry
	engine   *engine.Engine
	server   *server.Server
	logger   *logrus.Logger
}

// NewApplication loads configuration and wires every component.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	if err := setupLogger(logger, cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	reg := registry.New(cfg.Engine.Quality, logger)
	if err := reg.LoadFile(cfg.Registry.Path); err != nil {
		return nil, fmt.Errorf("failed to load model registry: %w", err)
	}

	embedder := retrieval.NewHashEmbedder(256)
	index := retrieval.NewMemoryIndex(embedder)
	if cfg.Registry.CorpusPath != "" {
		docs, err := retrieval.LoadCorpusFile(cfg.Registry.CorpusPath)
		if err != nil {
			// Retrieval is a signal booster; a missing corpus must not
			// prevent startup.
			logger.WithError(err).Warn("Documentation corpus unavailable, retrieval hints disabled")
		} else if err := index.Rebuild(context.Background(), docs); err != nil {
			logger.WithError(err).Warn("Corpus index build failed, retrieval hints disabled")
		} else {
			logger.WithField("documents", len(docs)).Info("Documentation corpus indexed")
		}
	}

	retriever, err := retrieval.New(cfg.Engine.Retrieval, embedder, index, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	controller := execution.New(cfg.Engine.Execution, reg, logger)
	registerProviders(controller, cfg, logger)

	eng := engine.New(
		analyzer.New(cfg.Engine.Analyzer, logger),
		retriever,
		scoring.New(cfg.Engine.Scoring, logger),
		controller,
		reg,
		logger,
	)

	srv, err := server.NewServer(eng, reg, cfg.ToServerConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Application{
		config:   cfg,
		registry: reg,
		engine:   eng,
		server:   srv,
		logger:   logger,
	}, nil
}

// Run starts the server and blocks until shutdown.
func (app *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		app.logger.WithField("signal", sig.String()).Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return app.server.Stop(ctx)
	}
}

func registerProviders(controller *execution.Controller, cfg *config.Config, logger *logrus.Logger) {
	if cfg.Providers.OpenAI != nil && cfg.Providers.OpenAI.APIKey != "" {
		controller.RegisterProvider(openai.New(cfg.Providers.OpenAI, logger))
	}
	if cfg.Providers.Anthropic != nil && cfg.Providers.Anthropic.APIKey != "" {
		controller.RegisterProvider(anthropic.New(cfg.Providers.Anthropic, logger))
	}
}

func setupLogger(logger *logrus.Logger, cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch cfg.Output {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		app.logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}
