package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/vector"
)

var bucketProjects = []byte("projects")

// BoltStore implements BlockStore on bbolt. Each project is a nested bucket under "projects";
// records are keyed by the bucket sequence so iteration order is insertion order.
type BoltStore struct {
	db   *bbolt.DB
	path string
	opts storeOptions
}

var _ BlockStore = (*BoltStore)(nil)

// NewBoltStore opens or creates a bbolt database at path.
func NewBoltStore(path string, opts ...Option) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketProjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucketProjects, err)
	}
	return &BoltStore{db: db, path: path, opts: buildOptions(opts)}, nil
}

// project returns the project's bucket, or nil when it does not exist.
func project(tx *bbolt.Tx, name string) *bbolt.Bucket {
	return tx.Bucket(bucketProjects).Bucket([]byte(name))
}

// ProjectExists reports whether the project's bucket exists.
func (s *BoltStore) ProjectExists(ctx context.Context, name string) (bool, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return false, err
	}
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		ok = project(tx, name) != nil
		return nil
	})
	if err != nil {
		return false, storageErr("lookup project", name, err)
	}
	return ok, nil
}

// CreateProject creates the project's bucket if missing.
func (s *BoltStore) CreateProject(ctx context.Context, name string) error {
	if err := models.ValidateProjectName(name); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.Bucket(bucketProjects).CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return storageErr("create project", name, err)
	}
	return nil
}

// DeleteProject removes the project's bucket. Freed pages are reused by later writes.
func (s *BoltStore) DeleteProject(ctx context.Context, name string) error {
	if err := models.ValidateProjectName(name); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketProjects).DeleteBucket([]byte(name))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return storageErr("delete project", name, err)
	}
	return nil
}

// ProjectInfo returns the block count, or nil if the project does not exist.
func (s *BoltStore) ProjectInfo(ctx context.Context, name string) (*models.ProjectInfo, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return nil, err
	}
	var info *models.ProjectInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := project(tx, name)
		if b == nil {
			return nil
		}
		info = &models.ProjectInfo{Name: name, TotalCodeBlocks: int64(b.Stats().KeyN)}
		return nil
	})
	if err != nil {
		return nil, storageErr("count blocks", name, err)
	}
	return info, nil
}

// ListProjects returns project names in ascending order.
func (s *BoltStore) ListProjects(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProjects).ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("list projects", "", err)
	}
	return names, nil
}

// InsertBlocks writes all records in one bbolt transaction.
func (s *BoltStore) InsertBlocks(ctx context.Context, name string, records []models.StoredBlockRecord) error {
	if err := models.ValidateProjectName(name); err != nil {
		return err
	}
	progress := newInsertProgress(s.opts.progress, len(records), name)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := project(tx, name)
		if b == nil {
			return notFound(name)
		}
		for i := range records {
			rec := records[i]
			if err := checkRecord(&rec, s.opts.dimensions); err != nil {
				return err
			}
			rec.Block.OutgoingCalls = nonNilCalls(rec.Block.OutgoingCalls)
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(sequenceKey(seq), data); err != nil {
				return err
			}
			progress.inc()
		}
		return nil
	})
	if errors.Is(err, models.ErrProjectNotFound) {
		return err
	}
	if err != nil {
		return storageErr("insert into", name, err)
	}
	progress.finish()
	return nil
}

// AllFunctionBlocks returns every block with a function name, in storage order.
func (s *BoltStore) AllFunctionBlocks(ctx context.Context, name string) ([]models.CodeBlock, error) {
	return s.filterBlocks(name, func(b *models.CodeBlock) bool {
		return b.FunctionName != nil
	})
}

// SearchText returns function blocks whose content contains needle.
func (s *BoltStore) SearchText(ctx context.Context, name, needle string) ([]models.CodeBlock, error) {
	return s.filterBlocks(name, func(b *models.CodeBlock) bool {
		return b.FunctionName != nil && strings.Contains(b.Content, needle)
	})
}

// SearchByFunctionName returns blocks whose function name equals functionName exactly.
func (s *BoltStore) SearchByFunctionName(ctx context.Context, name, functionName string) ([]models.CodeBlock, error) {
	return s.filterBlocks(name, func(b *models.CodeBlock) bool {
		return b.FunctionName != nil && *b.FunctionName == functionName
	})
}

// AllVectors returns every stored vector with its content, in storage order.
func (s *BoltStore) AllVectors(ctx context.Context, name string) ([]vector.Point, error) {
	points := []vector.Point{}
	err := s.scan(name, func(rec *models.StoredBlockRecord) error {
		p, err := toPoint(rec.Vector, rec.Block.Content, s.opts.dimensions)
		if err != nil {
			return fmt.Errorf("vector of %s: %w", rec.Block.NodeKey, err)
		}
		points = append(points, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (s *BoltStore) filterBlocks(name string, keep func(*models.CodeBlock) bool) ([]models.CodeBlock, error) {
	blocks := []models.CodeBlock{}
	err := s.scan(name, func(rec *models.StoredBlockRecord) error {
		if keep(&rec.Block) {
			rec.Block.OutgoingCalls = nonNilCalls(rec.Block.OutgoingCalls)
			blocks = append(blocks, rec.Block)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// scan decodes every record of a project in key order. A record that fails to decode fails the scan.
func (s *BoltStore) scan(name string, fn func(*models.StoredBlockRecord) error) error {
	if err := models.ValidateProjectName(name); err != nil {
		return err
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := project(tx, name)
		if b == nil {
			return notFound(name)
		}
		return b.ForEach(func(k, v []byte) error {
			var rec models.StoredBlockRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %x: %w", k, err)
			}
			return fn(&rec)
		})
	})
	if errors.Is(err, models.ErrProjectNotFound) {
		return err
	}
	if err != nil {
		return storageErr("read", name, err)
	}
	return nil
}

// Paths returns the database file.
func (s *BoltStore) Paths() []string {
	return []string{s.path}
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func sequenceKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
