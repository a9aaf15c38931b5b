// Package parser extracts code blocks from source files with tree-sitter.
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec describes how to find blocks in one language.
type LanguageSpec struct {
	Name     string
	Language *sitter.Language
	// Definitions captures each block node as @chunk and its identifier as @name.
	Definitions string
	// Calls captures the callee expression of every call as @callee.
	Calls      string
	Extensions []string
	// Kind maps a @chunk node type to a block kind and reports whether it defines a class.
	Kind func(n *sitter.Node) Shape
	// Receiver returns the owning type of a method when the language does not nest methods in classes.
	Receiver func(n *sitter.Node, src []byte) string

	once    sync.Once
	defs    *sitter.Query
	calls   *sitter.Query
	loadErr error
}

// queries compiles both queries once per language.
func (s *LanguageSpec) queries() (*sitter.Query, *sitter.Query, error) {
	s.once.Do(func() {
		s.defs, s.loadErr = sitter.NewQuery([]byte(s.Definitions), s.Language)
		if s.loadErr != nil {
			s.loadErr = fmt.Errorf("compile definitions query for %s: %w", s.Name, s.loadErr)
			return
		}
		s.calls, s.loadErr = sitter.NewQuery([]byte(s.Calls), s.Language)
		if s.loadErr != nil {
			s.loadErr = fmt.Errorf("compile calls query for %s: %w", s.Name, s.loadErr)
		}
	})
	return s.defs, s.calls, s.loadErr
}

// Registry maps file extensions to language specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*LanguageSpec)}
}

// DefaultRegistry returns a registry with Go, Python and JavaScript registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(goSpec())
	r.Register(pythonSpec())
	r.Register(javascriptSpec())
	return r
}

// Register adds lang under each of its extensions.
func (r *Registry) Register(lang *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range lang.Extensions {
		r.specs[ext] = lang
	}
}

// Lookup returns the language for path based on its extension, or nil.
func (r *Registry) Lookup(path string) *LanguageSpec {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[ext]
}

// Extensions returns every registered extension (without dot), sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.specs))
	for ext := range r.specs {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
