// Package indexer coordinates block storage, embedding and nearest-neighbor search per project.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/blockdex/internal/embedding"
	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/storage"
	"github.com/hyperjump/blockdex/internal/vector"
)

// Parser turns a directory of source files into code blocks.
type Parser interface {
	ParseDirectory(ctx context.Context, root string) ([]models.CodeBlock, error)
}

// ErrNoParser is returned by IndexDirectory when no parser was configured.
var ErrNoParser = errors.New("no parser configured")

// ProjectIndex is the single entry point for project operations.
//
// All storage calls are serialized through one mutex. Embedding and spatial index
// construction run outside it, so a slow model does not block other projects' reads.
type ProjectIndex struct {
	mu        sync.Mutex
	store     storage.BlockStore
	engine    *embedding.Engine
	parser    Parser
	indexType string
	logger    *zap.Logger
}

// Option configures a ProjectIndex.
type Option func(*ProjectIndex)

// WithLogger sets a logger for debug output (ingests, searches, deletions).
func WithLogger(l *zap.Logger) Option {
	return func(p *ProjectIndex) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithIndexType selects the spatial index built for each similarity query.
func WithIndexType(t string) Option {
	return func(p *ProjectIndex) { p.indexType = t }
}

// WithParser sets the parser used by IndexDirectory.
func WithParser(parser Parser) Option {
	return func(p *ProjectIndex) { p.parser = parser }
}

// NewProjectIndex creates a coordinator over store and engine.
func NewProjectIndex(store storage.BlockStore, engine *embedding.Engine, opts ...Option) *ProjectIndex {
	p := &ProjectIndex{
		store:     store,
		engine:    engine,
		indexType: string(vector.IndexTypeKDTree),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create creates the project's namespace. Creating an existing project is a no-op.
func (p *ProjectIndex) Create(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.CreateProject(ctx, name); err != nil {
		return err
	}
	p.logger.Debug("project created", zap.String("project", name))
	return nil
}

// Delete removes the project and all its blocks. Deleting a missing project is a no-op.
func (p *ProjectIndex) Delete(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.DeleteProject(ctx, name); err != nil {
		return err
	}
	p.logger.Debug("project deleted", zap.String("project", name))
	return nil
}

// Exists reports whether the project exists.
func (p *ProjectIndex) Exists(ctx context.Context, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.ProjectExists(ctx, name)
}

// Info returns the project's block count, or nil when it does not exist.
func (p *ProjectIndex) Info(ctx context.Context, name string) (*models.ProjectInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.ProjectInfo(ctx, name)
}

// ListProjects returns every project name in ascending order.
func (p *ProjectIndex) ListProjects(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.ListProjects(ctx)
}

// Ingest embeds every block's content in one batch and appends the blocks to the project.
// Nothing is stored when embedding fails. Re-ingesting appends; it never replaces.
func (p *ProjectIndex) Ingest(ctx context.Context, name string, blocks []models.CodeBlock) (*models.IngestResult, error) {
	if err := p.requireProject(ctx, name); err != nil {
		return nil, err
	}

	texts := make([]string, len(blocks))
	for i := range blocks {
		texts[i] = blocks[i].Content
	}
	points, err := p.engine.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed blocks for %s: %w", name, err)
	}

	ingestID := uuid.New().String()
	records := make([]models.StoredBlockRecord, len(blocks))
	for i := range blocks {
		records[i] = models.StoredBlockRecord{
			Block:    blocks[i],
			Vector:   points[i].Coordinates,
			IngestID: ingestID,
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// The project may have been deleted while embeddings were computed.
	ok, err := p.store.ProjectExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProjectNotFound, name)
	}
	if err := p.store.InsertBlocks(ctx, name, records); err != nil {
		return nil, err
	}
	p.logger.Debug("blocks ingested",
		zap.String("project", name),
		zap.String("ingest_id", ingestID),
		zap.Int("blocks", len(records)),
	)
	return &models.IngestResult{Project: name, IngestID: ingestID, Blocks: len(records)}, nil
}

// IndexDirectory parses every supported source file under root and ingests the blocks.
func (p *ProjectIndex) IndexDirectory(ctx context.Context, name, root string) (*models.IngestResult, error) {
	if p.parser == nil {
		return nil, ErrNoParser
	}
	if err := p.requireProject(ctx, name); err != nil {
		return nil, err
	}
	blocks, err := p.parser.ParseDirectory(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", root, err)
	}
	p.logger.Debug("directory parsed",
		zap.String("project", name),
		zap.String("root", root),
		zap.Int("blocks", len(blocks)),
	)
	return p.Ingest(ctx, name, blocks)
}

// EmbeddingProvider names the embedder actually computing vectors.
func (p *ProjectIndex) EmbeddingProvider() string {
	return p.engine.Provider()
}

// FindSimilar returns the stored block text nearest to query and the k nearest texts, closest first.
// The spatial index is rebuilt from the rows committed when the storage lock was taken.
func (p *ProjectIndex) FindSimilar(ctx context.Context, name, query string, k int) (*models.NearestBlocks, error) {
	if err := p.requireProject(ctx, name); err != nil {
		return nil, err
	}
	q, err := p.engine.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query for %s: %w", name, err)
	}

	p.mu.Lock()
	points, err := p.store.AllVectors(ctx, name)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	index, err := vector.Build(p.indexType, points)
	if err != nil {
		return nil, err
	}
	best, err := index.Nearest(q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}
	top, err := index.KNearest(q, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}
	result := &models.NearestBlocks{Nearest: best.Text, KNearest: make([]string, len(top))}
	for i, pt := range top {
		result.KNearest[i] = pt.Text
	}
	p.logger.Debug("similarity search",
		zap.String("project", name),
		zap.String("index", index.Type()),
		zap.Int("points", index.Len()),
		zap.Int("k", k),
	)
	return result, nil
}

// FindByText returns function blocks whose content contains needle.
func (p *ProjectIndex) FindByText(ctx context.Context, name, needle string) ([]models.CodeBlock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.SearchText(ctx, name, needle)
}

// FindByFunctionName returns blocks whose function name equals functionName.
func (p *ProjectIndex) FindByFunctionName(ctx context.Context, name, functionName string) ([]models.CodeBlock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.SearchByFunctionName(ctx, name, functionName)
}

// AllFunctionBlocks returns every block of the project that has a function name.
func (p *ProjectIndex) AllFunctionBlocks(ctx context.Context, name string) ([]models.CodeBlock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.AllFunctionBlocks(ctx, name)
}

func (p *ProjectIndex) requireProject(ctx context.Context, name string) error {
	ok, err := p.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrProjectNotFound, name)
	}
	return nil
}
