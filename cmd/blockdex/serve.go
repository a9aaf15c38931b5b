package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/blockdex/internal/config"
	"github.com/hyperjump/blockdex/internal/embedding"
	"github.com/hyperjump/blockdex/internal/indexer"
	"github.com/hyperjump/blockdex/internal/parser"
	"github.com/hyperjump/blockdex/internal/server"
	"github.com/hyperjump/blockdex/internal/storage"
	"github.com/hyperjump/blockdex/pkg/utils"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [port]",
		Short: "Start the HTTP API server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := resolveConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				port, err := parsePort(args[0])
				if err != nil {
					return err
				}
				cfg.Server.Port = port
			}
			return runServe(cfg, path)
		},
	}
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}

func runServe(cfg *config.Config, configPath string) error {
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", configPath),
		zap.Bool("debug", cfg.Debug),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	srv := server.NewServer(components.Index, components.Store, cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

// Components are the long-lived objects shared by the server and MCP commands.
type Components struct {
	Store    storage.BlockStore
	Embedder embedding.Embedder
	Index    *indexer.ProjectIndex
}

// Close releases the store and the embedding model.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	opts := []storage.Option{storage.WithDimensions(cfg.Embedding.Dimensions)}
	if cfg.Storage.Progress {
		opts = append(opts, storage.WithProgress(os.Stderr))
	}
	store, err := storage.Open(cfg.Storage, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.NewFromConfig(cfg.Embedding, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	engine := embedding.NewEngine(embedder, cfg.Embedding.Dimensions)

	idx := indexer.NewProjectIndex(store, engine,
		indexer.WithLogger(logger),
		indexer.WithIndexType(cfg.Search.IndexType),
		indexer.WithParser(parser.New(cfg.Parser, parser.WithLogger(logger))),
	)
	logger.Info("components initialized",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("embedding_provider", engine.Provider()),
		zap.Int("dimensions", engine.Dimensions()),
		zap.String("index_type", cfg.Search.IndexType),
	)
	return &Components{Store: store, Embedder: embedder, Index: idx}, nil
}
