package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newOllamaServer(t *testing.T, requests *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(requests, 1)
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model != "test-model" {
			http.Error(w, "unknown model", http.StatusNotFound)
			return
		}
		resp := ollamaEmbedResponse{}
		for _, in := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(len(in)), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	var requests int32
	srv := newOllamaServer(t, &requests)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "test-model", 2, 100, 0)
	out, err := e.EmbedBatch(context.Background(), []string{"a", "bbb", "cc"})
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 3, 2}
	for i, v := range out {
		if v[0] != want[i] {
			t.Errorf("embedding %d: got %v, want first coordinate %v", i, v, want[i])
		}
	}
	if atomic.LoadInt32(&requests) != 1 {
		t.Errorf("batch should be one request, got %d", requests)
	}

	// Cached texts are not sent again.
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "bbb"}); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&requests) != 1 {
		t.Errorf("cached batch should not hit the server, got %d requests", requests)
	}
	v, err := e.Embed(context.Background(), "dddd")
	if err != nil {
		t.Fatal(err)
	}
	if v[0] != 4 || atomic.LoadInt32(&requests) != 2 {
		t.Errorf("Embed: got %v after %d requests", v, requests)
	}
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	var requests int32
	srv := newOllamaServer(t, &requests)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "missing-model", 2, 0, 0)
	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should mention status: %v", err)
	}
}
