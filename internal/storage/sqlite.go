package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/vector"
)

// tablePrefix keeps project tables apart from anything else in the database.
const tablePrefix = "blocks_"

// SQLiteStore implements BlockStore with one table per project.
// The handle is limited to a single connection.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts storeOptions
}

var _ BlockStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at dbPath.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(o.driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath, opts: o}, nil
}

// tableID returns the table name for a project. SQLite compares identifiers without regard to
// case, so the name is hex-encoded to keep "Demo" and "demo" in separate tables.
func tableID(name string) string {
	return tablePrefix + hex.EncodeToString([]byte(name))
}

// tableName returns the quoted table identifier for a project. name must already be validated.
func tableName(name string) string {
	return `"` + tableID(name) + `"`
}

func (s *SQLiteStore) exists(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		tableID(name),
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("lookup project", name, err)
	}
	return true, nil
}

func (s *SQLiteStore) requireProject(ctx context.Context, name string) error {
	if err := models.ValidateProjectName(name); err != nil {
		return err
	}
	ok, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(name)
	}
	return nil
}

// ProjectExists reports whether the project's table exists.
func (s *SQLiteStore) ProjectExists(ctx context.Context, name string) (bool, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return false, err
	}
	return s.exists(ctx, name)
}

// CreateProject creates the project's table and function-name index if missing.
func (s *SQLiteStore) CreateProject(ctx context.Context, name string) error {
	if err := models.ValidateProjectName(name); err != nil {
		return err
	}
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY,
		ingest_id TEXT NOT NULL DEFAULT '',
		node_key TEXT NOT NULL,
		block_type TEXT NOT NULL,
		content TEXT NOT NULL,
		class_name TEXT,
		function_name TEXT,
		outgoing_calls TEXT NOT NULL DEFAULT '[]',
		vectors TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS "idx_%[2]s_function_name" ON %[1]s(function_name);
	`, tableName(name), tableID(name))
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return storageErr("create project", name, err)
	}
	return nil
}

// DeleteProject drops the project's table and vacuums the database.
func (s *SQLiteStore) DeleteProject(ctx context.Context, name string) error {
	if err := models.ValidateProjectName(name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+tableName(name)); err != nil {
		return storageErr("delete project", name, err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return storageErr("vacuum after deleting", name, err)
	}
	return nil
}

// ProjectInfo returns the block count, or nil if the project does not exist.
func (s *SQLiteStore) ProjectInfo(ctx context.Context, name string) (*models.ProjectInfo, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return nil, err
	}
	ok, err := s.exists(ctx, name)
	if err != nil || !ok {
		return nil, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName(name)).Scan(&count); err != nil {
		return nil, storageErr("count blocks", name, err)
	}
	return &models.ProjectInfo{Name: name, TotalCodeBlocks: count}, nil
}

// ListProjects returns project names in ascending order.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND substr(name, 1, ?) = ? ORDER BY name`,
		len(tablePrefix), tablePrefix,
	)
	if err != nil {
		return nil, storageErr("list projects", "", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, storageErr("list projects", "", err)
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(table, tablePrefix))
		if err != nil {
			continue
		}
		if name := string(raw); models.ValidateProjectName(name) == nil {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list projects", "", err)
	}
	return names, nil
}

// InsertBlocks inserts all records in one transaction. Any failure rolls back the whole batch.
func (s *SQLiteStore) InsertBlocks(ctx context.Context, name string, records []models.StoredBlockRecord) error {
	if err := s.requireProject(ctx, name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin insert into", name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (ingest_id, node_key, block_type, content, class_name, function_name, outgoing_calls, vectors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, tableName(name)))
	if err != nil {
		return storageErr("prepare insert into", name, err)
	}
	defer stmt.Close()

	progress := newInsertProgress(s.opts.progress, len(records), name)
	for i := range records {
		rec := &records[i]
		if err := checkRecord(rec, s.opts.dimensions); err != nil {
			return storageErr("insert into", name, err)
		}
		calls, err := json.Marshal(nonNilCalls(rec.Block.OutgoingCalls))
		if err != nil {
			return storageErr("encode outgoing calls for", name, err)
		}
		vec, err := json.Marshal(rec.Vector)
		if err != nil {
			return storageErr("encode vector for", name, err)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.IngestID,
			rec.Block.NodeKey,
			string(rec.Block.BlockType),
			rec.Block.Content,
			nullString(rec.Block.ClassName),
			nullString(rec.Block.FunctionName),
			string(calls),
			string(vec),
		); err != nil {
			return storageErr("insert into", name, err)
		}
		progress.inc()
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit insert into", name, err)
	}
	progress.finish()
	return nil
}

const blockColumns = `node_key, block_type, content, class_name, function_name, outgoing_calls`

// AllFunctionBlocks returns every block with a function name, in storage order.
func (s *SQLiteStore) AllFunctionBlocks(ctx context.Context, name string) ([]models.CodeBlock, error) {
	return s.queryBlocks(ctx, name, "function_name IS NOT NULL")
}

// SearchText returns function blocks whose content contains needle. instr() is used rather
// than LIKE so that matching is case-sensitive and % or _ in the needle are literal.
func (s *SQLiteStore) SearchText(ctx context.Context, name, needle string) ([]models.CodeBlock, error) {
	return s.queryBlocks(ctx, name, "function_name IS NOT NULL AND instr(content, ?) > 0", needle)
}

// SearchByFunctionName returns blocks whose function name equals functionName exactly.
func (s *SQLiteStore) SearchByFunctionName(ctx context.Context, name, functionName string) ([]models.CodeBlock, error) {
	return s.queryBlocks(ctx, name, "function_name = ?", functionName)
}

func (s *SQLiteStore) queryBlocks(ctx context.Context, name, where string, args ...interface{}) ([]models.CodeBlock, error) {
	if err := s.requireProject(ctx, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY id", blockColumns, tableName(name), where),
		args...,
	)
	if err != nil {
		return nil, storageErr("query blocks in", name, err)
	}
	defer rows.Close()

	blocks := []models.CodeBlock{}
	for rows.Next() {
		var b models.CodeBlock
		var blockType, calls string
		var className, functionName sql.NullString
		if err := rows.Scan(&b.NodeKey, &blockType, &b.Content, &className, &functionName, &calls); err != nil {
			return nil, storageErr("scan block in", name, err)
		}
		b.BlockType = models.BlockKind(blockType)
		b.ClassName = stringPtr(className)
		b.FunctionName = stringPtr(functionName)
		if err := json.Unmarshal([]byte(calls), &b.OutgoingCalls); err != nil {
			return nil, storageErr("decode outgoing calls of "+b.NodeKey+" in", name, err)
		}
		b.OutgoingCalls = nonNilCalls(b.OutgoingCalls)
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query blocks in", name, err)
	}
	return blocks, nil
}

// AllVectors returns every stored vector with its content, in storage order.
func (s *SQLiteStore) AllVectors(ctx context.Context, name string) ([]vector.Point, error) {
	if err := s.requireProject(ctx, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT node_key, content, vectors FROM "+tableName(name)+" ORDER BY id")
	if err != nil {
		return nil, storageErr("query vectors in", name, err)
	}
	defer rows.Close()

	points := []vector.Point{}
	for rows.Next() {
		var nodeKey, content, raw string
		if err := rows.Scan(&nodeKey, &content, &raw); err != nil {
			return nil, storageErr("scan vector in", name, err)
		}
		var coords []float32
		if err := json.Unmarshal([]byte(raw), &coords); err != nil {
			return nil, storageErr("decode vector of "+nodeKey+" in", name, err)
		}
		p, err := toPoint(coords, content, s.opts.dimensions)
		if err != nil {
			return nil, storageErr("vector of "+nodeKey+" in", name, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query vectors in", name, err)
	}
	return points, nil
}

// Paths returns the database file and its WAL sidecars.
func (s *SQLiteStore) Paths() []string {
	return []string{s.path, s.path + "-wal", s.path + "-shm"}
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nonNilCalls(calls []string) []string {
	if calls == nil {
		return []string{}
	}
	return calls
}
