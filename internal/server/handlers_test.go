package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/blockdex/internal/config"
	"github.com/hyperjump/blockdex/internal/embedding"
	"github.com/hyperjump/blockdex/internal/indexer"
	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/parser"
	"github.com/hyperjump/blockdex/internal/storage"
)

const testDims = 8

type testServer struct {
	handler http.Handler
	index   *indexer.ProjectIndex
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "blocks.db")
	cfg.Embedding.Provider = config.ProviderMock
	cfg.Embedding.Dimensions = testDims

	store, err := storage.Open(cfg.Storage, storage.WithDimensions(testDims))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	engine := embedding.NewEngine(embedding.NewMockEmbedder(testDims), testDims)
	idx := indexer.NewProjectIndex(store, engine,
		indexer.WithParser(parser.New(cfg.Parser)),
		indexer.WithIndexType(cfg.Search.IndexType),
	)
	srv := NewServer(idx, store, cfg, zap.NewNop())
	return &testServer{handler: srv.Handler(), index: idx}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Message string `json:"message"`
	}
	decode(t, w, &out)
	return out.Message
}

func TestProjectLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/project", `{"project_name":"demo","project_path":"/src/demo"}`)
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Fatalf("create: status %d body %q", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/project/demo", "")
	if w.Code != http.StatusOK {
		t.Fatalf("info: status %d", w.Code)
	}
	var info models.ProjectInfo
	decode(t, w, &info)
	if info.Name != "demo" || info.TotalCodeBlocks != 0 {
		t.Errorf("info = %+v", info)
	}

	w = ts.do(t, http.MethodGet, "/projects", "")
	var list struct {
		Projects []string `json:"projects"`
	}
	decode(t, w, &list)
	if len(list.Projects) != 1 || list.Projects[0] != "demo" {
		t.Errorf("projects = %v", list.Projects)
	}

	w = ts.do(t, http.MethodDelete, "/project/demo", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d", w.Code)
	}
	if got := message(t, w); got != "Deleted project demo" {
		t.Errorf("delete message = %q", got)
	}

	w = ts.do(t, http.MethodGet, "/project/demo", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("info after delete: status %d", w.Code)
	}
	if got := message(t, w); got != "Project demo not found" {
		t.Errorf("not found message = %q", got)
	}

	w = ts.do(t, http.MethodDelete, "/project/demo", "")
	if w.Code != http.StatusOK {
		t.Errorf("second delete: status %d", w.Code)
	}
}

func TestCreateProject_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"project_name":`},
		{"empty name", `{"project_name":"","project_path":"/x"}`},
		{"bad characters", `{"project_name":"demo;drop","project_path":"/x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/project", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", w.Code)
			}
		})
	}
	if w := ts.do(t, http.MethodGet, "/project/bad-name", ""); w.Code != http.StatusBadRequest {
		t.Errorf("GET invalid name: status %d, want 400", w.Code)
	}
}

func TestGenerateAndSearch(t *testing.T) {
	ts := newTestServer(t)
	src := t.TempDir()
	code := "def foo():\n    return bar()\n\n\ndef bar():\n    return 42\n"
	if err := os.WriteFile(filepath.Join(src, "main.py"), []byte(code), 0644); err != nil {
		t.Fatal(err)
	}

	body := fmt.Sprintf(`{"project_name":"demo","project_path":%q}`, src)
	if w := ts.do(t, http.MethodPost, "/project/generate", body); w.Code != http.StatusNotFound {
		t.Errorf("generate before create: status %d, want 404", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/project", body); w.Code != http.StatusOK {
		t.Fatalf("create: status %d", w.Code)
	}
	w := ts.do(t, http.MethodPost, "/project/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: status %d body %s", w.Code, w.Body.String())
	}
	var gen models.GenerateResponse
	decode(t, w, &gen)
	if gen.ProjectName != "demo" || gen.ProjectPath != src || gen.Message != "Generated embeddings for demo" {
		t.Errorf("generate response = %+v", gen)
	}

	w = ts.do(t, http.MethodPost, "/get_blocks/demo", "")
	var blocks []models.CodeBlock
	decode(t, w, &blocks)
	if len(blocks) != 2 {
		t.Fatalf("get_blocks returned %d blocks, want 2", len(blocks))
	}
	fooContent := blocks[0].Content

	w = ts.do(t, http.MethodPost, "/search/demo", fooContent)
	if w.Code != http.StatusOK {
		t.Fatalf("search: status %d", w.Code)
	}
	var nearest models.NearestBlocks
	decode(t, w, &nearest)
	if nearest.Nearest != fooContent || len(nearest.KNearest) != 2 || nearest.KNearest[0] != fooContent {
		t.Errorf("search = %+v", nearest)
	}

	w = ts.do(t, http.MethodPost, "/search_blocks/demo", "42")
	blocks = nil
	decode(t, w, &blocks)
	if len(blocks) != 1 || blocks[0].FunctionName == nil || *blocks[0].FunctionName != "bar" {
		t.Errorf("search_blocks = %+v", blocks)
	}

	w = ts.do(t, http.MethodPost, "/search_by_function/demo", "foo")
	blocks = nil
	decode(t, w, &blocks)
	if len(blocks) != 1 || blocks[0].NodeKey != "main.py:1:foo" {
		t.Errorf("search_by_function = %+v", blocks)
	}
	if len(blocks) == 1 && (len(blocks[0].OutgoingCalls) != 1 || blocks[0].OutgoingCalls[0] != "bar") {
		t.Errorf("outgoing calls = %v", blocks[0].OutgoingCalls)
	}
}

func TestGenerate_BadPath(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodPost, "/project", `{"project_name":"demo"}`); w.Code != http.StatusOK {
		t.Fatalf("create: status %d", w.Code)
	}
	missing := filepath.Join(t.TempDir(), "missing")
	body := fmt.Sprintf(`{"project_name":"demo","project_path":%q}`, missing)
	if w := ts.do(t, http.MethodPost, "/project/generate", body); w.Code != http.StatusBadRequest {
		t.Errorf("missing path: status %d, want 400", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/project/generate", `{"project_name":"demo","project_path":"  "}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank path: status %d, want 400", w.Code)
	}
}

func TestSearchErrors(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodPost, "/project", `{"project_name":"empty"}`); w.Code != http.StatusOK {
		t.Fatalf("create: status %d", w.Code)
	}
	tests := []struct {
		path string
		want int
	}{
		{"/search/missing", http.StatusNotFound},
		{"/get_blocks/missing", http.StatusNotFound},
		{"/search_blocks/missing", http.StatusNotFound},
		{"/search_by_function/missing", http.StatusNotFound},
		{"/search/empty", http.StatusUnprocessableEntity},
		{"/search/bad-name", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := ts.do(t, http.MethodPost, tt.path, "query")
		if w.Code != tt.want {
			t.Errorf("POST %s: status %d, want %d", tt.path, w.Code, tt.want)
		}
		if msg := message(t, w); msg == "" {
			t.Errorf("POST %s: empty message", tt.path)
		}
	}

	w := ts.do(t, http.MethodPost, "/get_blocks/empty", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("get_blocks on empty project: %d %q", w.Code, w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrInvalidProjectName), http.StatusBadRequest},
		{fmt.Errorf("x: %w", models.ErrProjectNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", models.ErrEmptyIndex), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", models.ErrEmbeddingFailure), http.StatusBadGateway},
		{fmt.Errorf("x: %w", models.ErrStorageFailure), http.StatusInternalServerError},
		{fmt.Errorf("%w: %w", models.ErrStorageFailure, os.ErrNotExist), http.StatusInternalServerError},
		{fmt.Errorf("walk: %w", os.ErrNotExist), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHealthAndStatus(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: status %d", w.Code)
	}

	ts.do(t, http.MethodPost, "/project", `{"project_name":"a"}`)
	w = ts.do(t, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: status %d", w.Code)
	}
	var out struct {
		Projects       int            `json:"projects"`
		DiskUsageBytes int64          `json:"disk_usage_bytes"`
		Config         map[string]any `json:"config"`
	}
	decode(t, w, &out)
	if out.Projects != 1 || out.DiskUsageBytes <= 0 {
		t.Errorf("status = %+v", out)
	}
	if out.Config["index_type"] != "kdtree" {
		t.Errorf("config.index_type = %v", out.Config["index_type"])
	}
}

func TestStatusReportsEmbedderInUse(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "blocks.db")
	cfg.Embedding.Provider = config.ProviderONNX
	cfg.Embedding.Dimensions = testDims

	store, err := storage.Open(cfg.Storage, storage.WithDimensions(testDims))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	idx := indexer.NewProjectIndex(store, embedding.NewEngine(embedding.NewMockEmbedder(testDims), testDims))
	handler := NewServer(idx, store, cfg, zap.NewNop()).Handler()

	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: status %d", w.Code)
	}
	var out struct {
		EmbeddingProvider string         `json:"embedding_provider"`
		Config            map[string]any `json:"config"`
	}
	decode(t, w, &out)
	if out.EmbeddingProvider != config.ProviderMock {
		t.Errorf("embedding_provider = %q, want %q", out.EmbeddingProvider, config.ProviderMock)
	}
	if out.Config["embedding_provider"] != config.ProviderONNX {
		t.Errorf("config.embedding_provider = %v, want %q", out.Config["embedding_provider"], config.ProviderONNX)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/project", &bytes.Buffer{})
	r.Header.Set("Origin", "http://example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
