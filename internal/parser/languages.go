package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/hyperjump/blockdex/internal/models"
)

// Shape is what a definition node turns into.
type Shape struct {
	Kind    models.BlockKind
	IsClass bool
}

var (
	shapeFunction = Shape{Kind: models.BlockFunction}
	shapeMethod   = Shape{Kind: models.BlockMethod}
	shapeClass    = Shape{Kind: models.BlockClass, IsClass: true}
)

func goSpec() *LanguageSpec {
	return &LanguageSpec{
		Name:     "go",
		Language: golang.GetLanguage(),
		Definitions: `
			(function_declaration name: (identifier) @name) @chunk
			(method_declaration name: (field_identifier) @name) @chunk
			(type_declaration (type_spec name: (type_identifier) @name)) @chunk
		`,
		Calls: `
			(call_expression function: (_) @callee)
		`,
		Extensions: []string{"go"},
		Kind: func(n *sitter.Node) Shape {
			switch n.Type() {
			case "method_declaration":
				return shapeMethod
			case "type_declaration":
				return shapeClass
			}
			return shapeFunction
		},
		Receiver: goReceiver,
	}
}

// goReceiver returns the receiver type name of a method, without pointer or type parameters.
func goReceiver(n *sitter.Node, src []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		t := param.ChildByFieldName("type")
		if t == nil {
			continue
		}
		name := strings.TrimLeft(t.Content(src), "*")
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		return strings.TrimSpace(name)
	}
	return ""
}

func pythonSpec() *LanguageSpec {
	return &LanguageSpec{
		Name:     "python",
		Language: python.GetLanguage(),
		Definitions: `
			(function_definition name: (identifier) @name) @chunk
			(class_definition name: (identifier) @name) @chunk
		`,
		Calls: `
			(call function: (_) @callee)
		`,
		Extensions: []string{"py", "pyi"},
		Kind: func(n *sitter.Node) Shape {
			if n.Type() == "class_definition" {
				return shapeClass
			}
			if enclosingClass(n) != nil {
				return shapeMethod
			}
			return shapeFunction
		},
	}
}

func javascriptSpec() *LanguageSpec {
	return &LanguageSpec{
		Name:     "javascript",
		Language: javascript.GetLanguage(),
		Definitions: `
			(function_declaration name: (identifier) @name) @chunk
			(class_declaration name: (identifier) @name) @chunk
			(method_definition name: (property_identifier) @name) @chunk
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @chunk
		`,
		Calls: `
			(call_expression function: (_) @callee)
			(new_expression constructor: (_) @callee)
		`,
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
		Kind: func(n *sitter.Node) Shape {
			switch n.Type() {
			case "class_declaration":
				return shapeClass
			case "method_definition":
				return shapeMethod
			}
			return shapeFunction
		},
	}
}

var classNodeTypes = map[string]bool{
	"class_definition":  true,
	"class_declaration": true,
	"class":             true,
}

// enclosingClass returns the nearest class node containing n, or nil.
func enclosingClass(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if classNodeTypes[p.Type()] {
			return p
		}
	}
	return nil
}
