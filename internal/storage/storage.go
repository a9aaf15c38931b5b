// Package storage defines durable, project-namespaced storage for code blocks and their vectors.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/hyperjump/blockdex/internal/config"
	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/vector"
)

// BlockStore persists StoredBlockRecords in one isolated namespace per project.
//
// Every method validates the project name before touching storage. Queries against a
// project that does not exist return models.ErrProjectNotFound; engine errors and malformed
// rows are wrapped in models.ErrStorageFailure. Implementations are not required to be safe
// for concurrent use; callers serialize access.
type BlockStore interface {
	ProjectExists(ctx context.Context, name string) (bool, error)
	// CreateProject is a no-op when the project already exists.
	CreateProject(ctx context.Context, name string) error
	// DeleteProject removes every record and reclaims space. Deleting a missing project is a no-op.
	DeleteProject(ctx context.Context, name string) error
	// ProjectInfo returns nil when the project does not exist.
	ProjectInfo(ctx context.Context, name string) (*models.ProjectInfo, error)
	ListProjects(ctx context.Context) ([]string, error)

	// InsertBlocks appends all records atomically, in order.
	InsertBlocks(ctx context.Context, name string, records []models.StoredBlockRecord) error

	AllFunctionBlocks(ctx context.Context, name string) ([]models.CodeBlock, error)
	// SearchText returns function blocks whose content contains needle (case-sensitive).
	SearchText(ctx context.Context, name, needle string) ([]models.CodeBlock, error)
	SearchByFunctionName(ctx context.Context, name, functionName string) ([]models.CodeBlock, error)
	// AllVectors returns every record's vector paired with its content, in storage order.
	AllVectors(ctx context.Context, name string) ([]vector.Point, error)

	// Paths lists the files backing the store, for disk usage reporting.
	Paths() []string
	Close() error
}

// Option configures a store.
type Option func(*storeOptions)

type storeOptions struct {
	dimensions int
	progress   io.Writer
	driver     string
}

// WithDimensions makes the store reject vectors of any other length on insert and read.
func WithDimensions(n int) Option {
	return func(o *storeOptions) { o.dimensions = n }
}

// WithProgress draws a progress bar on w while inserting blocks.
func WithProgress(w io.Writer) Option {
	return func(o *storeOptions) { o.progress = w }
}

// WithDriver selects the database/sql driver for the SQLite store ("sqlite3" or "sqlite").
func WithDriver(driver string) Option {
	return func(o *storeOptions) { o.driver = driver }
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{driver: config.DriverCGO}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open creates the store selected by cfg.Backend.
func Open(cfg config.StorageConfig, opts ...Option) (BlockStore, error) {
	if cfg.Driver != "" {
		opts = append([]Option{WithDriver(cfg.Driver)}, opts...)
	}
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return NewSQLiteStore(cfg.DatabasePath, opts...)
	case config.BackendBolt:
		return NewBoltStore(cfg.BoltPath, opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

func storageErr(op, project string, err error) error {
	if project == "" {
		return fmt.Errorf("%w: %s: %w", models.ErrStorageFailure, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", models.ErrStorageFailure, op, project, err)
}

func notFound(project string) error {
	return fmt.Errorf("%w: %s", models.ErrProjectNotFound, project)
}

// checkRecord rejects vectors whose length differs from the configured dimensions.
func checkRecord(rec *models.StoredBlockRecord, dims int) error {
	if dims > 0 && len(rec.Vector) != dims {
		return fmt.Errorf("%w: node %s has %d coordinates, expected %d",
			models.ErrDimensionMismatch, rec.Block.NodeKey, len(rec.Vector), dims)
	}
	return nil
}

// toPoint converts a stored vector back into a point, enforcing the configured dimension.
func toPoint(coords []float32, text string, dims int) (vector.Point, error) {
	if dims <= 0 {
		return vector.Point{Coordinates: coords, Text: text}, nil
	}
	return vector.NewPoint(coords, text, dims)
}
