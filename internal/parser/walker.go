package parser

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceFile is a file selected for parsing.
type SourceFile struct {
	Path    string // absolute
	RelPath string // slash-separated, relative to the walk root
	Size    int64
}

// Walker selects files under a root with doublestar include and exclude globs.
type Walker struct {
	includes []string
	excludes []string
	maxBytes int64
}

// NewWalker creates a walker. An empty include list matches every file; maxBytes <= 0 disables the size limit.
func NewWalker(includes, excludes []string, maxBytes int64) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{includes: includes, excludes: excludes, maxBytes: maxBytes}
}

// Walk returns the matching regular files under root in lexical order.
func (w *Walker) Walk(ctx context.Context, root string) ([]SourceFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "walk", Path: root, Err: os.ErrInvalid}
	}

	var files []SourceFile
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && w.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !w.included(rel) || w.excluded(rel) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if w.maxBytes > 0 && fi.Size() > w.maxBytes {
			return nil
		}
		files = append(files, SourceFile{Path: path, RelPath: rel, Size: fi.Size()})
		return nil
	})
	return files, err
}

func (w *Walker) included(path string) bool {
	return matchAny(w.includes, path)
}

func (w *Walker) excluded(path string) bool {
	return matchAny(w.excludes, path)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
