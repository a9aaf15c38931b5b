package parser

import (
	"context"
	"fmt"
	"os"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/hyperjump/blockdex/internal/config"
	"github.com/hyperjump/blockdex/internal/models"
)

// TreeSitterParser turns source files into code blocks, one per function, method or class.
type TreeSitterParser struct {
	registry *Registry
	walker   *Walker
	logger   *zap.Logger
}

// Option configures a TreeSitterParser.
type Option func(*TreeSitterParser)

// WithLogger sets a logger for skipped files.
func WithLogger(l *zap.Logger) Option {
	return func(p *TreeSitterParser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRegistry replaces the default language registry.
func WithRegistry(r *Registry) Option {
	return func(p *TreeSitterParser) { p.registry = r }
}

// New creates a parser that walks directories according to cfg.
func New(cfg config.ParserConfig, opts ...Option) *TreeSitterParser {
	p := &TreeSitterParser{
		registry: DefaultRegistry(),
		walker:   NewWalker(cfg.Includes, cfg.Excludes, cfg.MaxFileBytes),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseDirectory parses every file under root that has a registered language.
// Blocks are returned in file order, then source order.
func (p *TreeSitterParser) ParseDirectory(ctx context.Context, root string) ([]models.CodeBlock, error) {
	files, err := p.walker.Walk(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	blocks := []models.CodeBlock{}
	for _, f := range files {
		if p.registry.Lookup(f.RelPath) == nil {
			continue
		}
		src, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.RelPath, err)
		}
		fileBlocks, err := p.ParseFile(ctx, f.RelPath, src)
		if err != nil {
			return nil, err
		}
		p.logger.Debug("parsed file", zap.String("path", f.RelPath), zap.Int("blocks", len(fileBlocks)))
		blocks = append(blocks, fileBlocks...)
	}
	return blocks, nil
}

type definition struct {
	node *sitter.Node
	name string
}

// ParseFile extracts blocks from src. path is used for language lookup and node keys.
// A file without a registered language yields no blocks.
func (p *TreeSitterParser) ParseFile(ctx context.Context, path string, src []byte) ([]models.CodeBlock, error) {
	lang := p.registry.Lookup(path)
	if lang == nil {
		return nil, nil
	}
	defsQuery, callsQuery, err := lang.queries()
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.Language)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	defs := collectDefinitions(defsQuery, tree.RootNode(), src)
	blocks := make([]models.CodeBlock, 0, len(defs))
	for _, d := range defs {
		shape := lang.Kind(d.node)
		line := int(d.node.StartPoint().Row) + 1
		block := models.CodeBlock{
			NodeKey:       nodeKey(path, line, d.name),
			BlockType:     shape.Kind,
			Content:       d.node.Content(src),
			OutgoingCalls: collectCalls(callsQuery, d.node, src),
		}
		if shape.IsClass {
			block.ClassName = models.StringPtr(d.name)
		} else {
			block.FunctionName = models.StringPtr(d.name)
			if owner := ownerName(lang, d.node, src); owner != "" {
				block.ClassName = models.StringPtr(owner)
			}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func collectDefinitions(q *sitter.Query, root *sitter.Node, src []byte) []definition {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var defs []definition
	seen := make(map[[2]uint32]map[string]bool)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var d definition
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "chunk":
				d.node = c.Node
			case "name":
				d.name = c.Node.Content(src)
			}
		}
		if d.node == nil {
			continue
		}
		span := [2]uint32{d.node.StartByte(), d.node.EndByte()}
		if seen[span] == nil {
			seen[span] = make(map[string]bool)
		}
		if seen[span][d.name] {
			continue
		}
		seen[span][d.name] = true
		defs = append(defs, d)
	}
	// Outer definitions before the ones nested in them.
	sort.SliceStable(defs, func(i, j int) bool {
		a, b := defs[i].node, defs[j].node
		if a.StartByte() != b.StartByte() {
			return a.StartByte() < b.StartByte()
		}
		return a.EndByte() > b.EndByte()
	})
	return defs
}

// collectCalls returns the callee expressions inside n, de-duplicated in first-seen order.
func collectCalls(q *sitter.Query, n *sitter.Node, src []byte) []string {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, n)

	calls := []string{}
	seen := make(map[string]bool)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			callee := c.Node.Content(src)
			if callee == "" || seen[callee] {
				continue
			}
			seen[callee] = true
			calls = append(calls, callee)
		}
	}
	return calls
}

func ownerName(lang *LanguageSpec, n *sitter.Node, src []byte) string {
	if lang.Receiver != nil {
		if name := lang.Receiver(n, src); name != "" {
			return name
		}
	}
	cls := enclosingClass(n)
	if cls == nil {
		return ""
	}
	if name := cls.ChildByFieldName("name"); name != nil {
		return name.Content(src)
	}
	return ""
}

func nodeKey(path string, line int, name string) string {
	if name == "" {
		return fmt.Sprintf("%s:%d", path, line)
	}
	return fmt.Sprintf("%s:%d:%s", path, line, name)
}
