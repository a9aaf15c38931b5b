// Package models defines core data structures for code blocks, projects, and search results.
package models

// BlockKind tags what kind of source construct a CodeBlock was extracted from.
type BlockKind string

const (
	BlockFunction  BlockKind = "function"
	BlockMethod    BlockKind = "method"
	BlockClass     BlockKind = "class"
	BlockStatement BlockKind = "statement"
)

// CodeBlock is a unit of source code produced by the parser.
// ClassName and FunctionName are nil when absent, which is distinct from an empty name.
type CodeBlock struct {
	NodeKey       string    `json:"node_key"`
	BlockType     BlockKind `json:"block_type"`
	Content       string    `json:"content"`
	ClassName     *string   `json:"class_name"`
	FunctionName  *string   `json:"function_name"`
	OutgoingCalls []string  `json:"outgoing_calls"`
}

// HasFunctionName reports whether the block carries a function name (possibly empty).
func (b *CodeBlock) HasFunctionName() bool {
	return b.FunctionName != nil
}

// StoredBlockRecord is the persisted form of a CodeBlock plus its embedding.
type StoredBlockRecord struct {
	Block    CodeBlock `json:"block"`
	Vector   []float32 `json:"vector"`
	IngestID string    `json:"ingest_id,omitempty"`
}

// StringPtr returns a pointer to s. Handy for building optional block names.
func StringPtr(s string) *string {
	return &s
}
