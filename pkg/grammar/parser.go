// Package grammar connects tree-sitter grammars to the arena: it derives a
// kind and field table from a grammar, parses source text and converts the
// concrete syntax tree into an [ast.Ast].
package grammar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
)

// Sentinel errors for parsing.
var (
	ErrSyntaxTree = errors.New("source has syntax errors")
	ErrNoRootNode = errors.New("parser returned no root node")
	errPoolType   = errors.New("parser pool returned unexpected type")
)

// Parser parses source text of one language. It is safe for concurrent use;
// tree-sitter parsers are pooled.
type Parser struct {
	language *sitter.Language
	table    *ast.Table
	pool     sync.Pool
	name     string
	lenient  bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithErrorNodes keeps trees that contain ERROR or MISSING nodes instead of
// failing with [ErrSyntaxTree]. Such nodes have no entry in the table.
func WithErrorNodes() ParserOption {
	return func(parser *Parser) {
		parser.lenient = true
	}
}

// NewParser returns a parser for the named grammar.
func NewParser(name string, opts ...ParserOption) (*Parser, error) {
	lang, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	return NewParserFor(name, lang, opts...), nil
}

// NewParserFor wraps an already loaded grammar.
func NewParserFor(name string, lang *sitter.Language, opts ...ParserOption) *Parser {
	parser := &Parser{
		name:     name,
		language: lang,
		table:    NewTable(lang),
	}

	parser.pool = sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}

	for _, opt := range opts {
		opt(parser)
	}

	return parser
}

// Name returns the grammar name.
func (parser *Parser) Name() string {
	return parser.name
}

// Language returns the kind and field table of the grammar.
func (parser *Parser) Language() ast.Language {
	return parser.table
}

// Table is Language with the concrete type.
func (parser *Parser) Table() *ast.Table {
	return parser.table
}

// ParseTree parses source and builds its arena.
func (parser *Parser) ParseTree(ctx context.Context, source []byte) (*ast.Ast, error) {
	tsParser, ok := parser.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer parser.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%s parser: %w", parser.name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, ErrNoRootNode
	}

	if root.HasError() && !parser.lenient {
		return nil, fmt.Errorf("%w: %s", ErrSyntaxTree, parser.name)
	}

	return Build(root, parser.table, source)
}
