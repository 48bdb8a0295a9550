package query

import (
	"fmt"
)

// Parse compiles query text into a Query. The text must hold exactly one
// top-level node pattern.
//
// Grammar:
//
//	query   = pattern
//	elem    = atom quant? capture*
//	atom    = "_" | "(" ("_" | kind) item* ")" | string | "[" elem+ "]"
//	item    = field ":" elem | elem
//	quant   = "*" | "+" | "?"
//	capture = "@" name
//
// Field items match the whole list under that field. Positional items, when
// present, match the whole children list. A "_" in kind position matches
// any node, so "(_ name: (identifier))" constrains only the name field.
func Parse(src string) (*Query, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}

	p := &Parser{tokens: tokens}

	elems, err := p.parseElem()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, syntaxError(tok.Position, fmt.Sprintf("unexpected %q after query", tok.Value))
	}

	root, ok := soloPattern(elems)
	if !ok {
		return nil, syntaxError(0, "query must be a single pattern without quantifier")
	}

	return New(root), nil
}

// MustParse is like Parse but panics on error. Intended for rule tables
// written in Go source.
func MustParse(src string) *Query {
	q, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return q
}

// Parser consumes lexer tokens and builds patterns.
type Parser struct {
	tokens  []Lexeme
	current int
}

func (p *Parser) peek() Lexeme {
	return p.tokens[p.current]
}

func (p *Parser) advance() Lexeme {
	tok := p.tokens[p.current]
	if tok.Type != TokenEOF {
		p.current++
	}

	return tok
}

func soloPattern(elems []Elem) (Pattern, bool) {
	if len(elems) != 1 {
		return nil, false
	}

	s, ok := elems[0].(single)
	if !ok {
		return nil, false
	}

	return s.pattern, true
}

// parseElem parses one element. An unquantified group expands to its members,
// so it returns a slice.
func (p *Parser) parseElem() ([]Elem, error) {
	start := p.peek()

	var (
		pattern Pattern
		group   []Elem
		err     error
	)

	switch start.Type {
	case TokenIdent:
		p.advance()

		if start.Value != "_" {
			return nil, syntaxError(start.Position, fmt.Sprintf("bare name %q, expected ( or _", start.Value))
		}

		pattern = Any()
	case TokenString:
		p.advance()
		pattern = Token(start.Value)
	case TokenLParen:
		pattern, err = p.parseNode()
	case TokenLBracket:
		group, err = p.parseGroup()
	case TokenEOF:
		return nil, syntaxError(start.Position, "unexpected end of query")
	default:
		return nil, syntaxError(start.Position, fmt.Sprintf("unexpected %q", start.Value))
	}

	if err != nil {
		return nil, err
	}

	var rep *Rep

	if tok := p.peek(); tok.Type == TokenQuant {
		p.advance()

		quant := quantifier(tok.Value)
		rep = &quant
	}

	for p.peek().Type == TokenCapture {
		tok := p.advance()
		if group != nil {
			return nil, syntaxError(tok.Position, "captures on a group are not supported")
		}

		pattern = Capture(tok.Value, pattern)
	}

	if pattern != nil {
		group = []Elem{One(pattern)}
	}

	if rep == nil {
		return group, nil
	}

	return []Elem{repeated{elems: group, rep: *rep}}, nil
}

func quantifier(symbol string) Rep {
	switch symbol {
	case "*":
		return ZeroOrMore
	case "+":
		return OneOrMore
	default:
		return ZeroOrOne
	}
}

func (p *Parser) parseNode() (Pattern, error) {
	open := p.advance()

	head := p.advance()
	if head.Type != TokenIdent {
		return nil, syntaxError(head.Position, "expected node kind after (")
	}

	if head.Value == wildcard && p.peek().Type == TokenRParen {
		p.advance()

		return Any(), nil
	}

	var items []Item

	for {
		tok := p.peek()

		switch tok.Type {
		case TokenRParen:
			p.advance()

			return Node(head.Value, items...), nil
		case TokenEOF:
			return nil, syntaxError(open.Position, "unclosed (")
		case TokenField:
			p.advance()

			elems, err := p.parseElem()
			if err != nil {
				return nil, err
			}

			items = append(items, Field(tok.Value, elems...))
		default:
			elems, err := p.parseElem()
			if err != nil {
				return nil, err
			}

			items = append(items, Children(elems...))
		}
	}
}

func (p *Parser) parseGroup() ([]Elem, error) {
	open := p.advance()

	var elems []Elem

	for {
		switch tok := p.peek(); tok.Type {
		case TokenRBracket:
			p.advance()

			if len(elems) == 0 {
				return nil, syntaxError(open.Position, "empty group")
			}

			return elems, nil
		case TokenEOF:
			return nil, syntaxError(open.Position, "unclosed [")
		default:
			parsed, err := p.parseElem()
			if err != nil {
				return nil, err
			}

			elems = append(elems, parsed...)
		}
	}
}
