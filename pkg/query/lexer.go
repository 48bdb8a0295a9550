package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// LexemeType classifies lexical tokens of the query syntax.
type LexemeType int

// Lexeme types.
const (
	TokenEOF      LexemeType = iota
	TokenLParen             // (
	TokenRParen             // )
	TokenLBracket           // [
	TokenRBracket           // ]
	TokenIdent              // kind name or "_"
	TokenField              // name:
	TokenString             // "="
	TokenCapture            // @name
	TokenQuant              // * + ?
)

// Lexeme is a lexical token with its byte offset in the query text.
type Lexeme struct {
	Value    string
	Type     LexemeType
	Position int
}

// Lexer splits query text into tokens. Comments start with ';' and run to the end of the line.
type Lexer struct {
	input    string
	position int
}

// NewLexer creates a Lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize returns all tokens, terminated by a TokenEOF.
func (l *Lexer) Tokenize() ([]Lexeme, error) {
	var tokens []Lexeme

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)

		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) next() (Lexeme, error) {
	l.skipSpaceAndComments()

	if l.position >= len(l.input) {
		return Lexeme{Type: TokenEOF, Position: l.position}, nil
	}

	start := l.position
	ch := l.input[l.position]

	switch ch {
	case '(':
		l.position++

		return Lexeme{Type: TokenLParen, Value: "(", Position: start}, nil
	case ')':
		l.position++

		return Lexeme{Type: TokenRParen, Value: ")", Position: start}, nil
	case '[':
		l.position++

		return Lexeme{Type: TokenLBracket, Value: "[", Position: start}, nil
	case ']':
		l.position++

		return Lexeme{Type: TokenRBracket, Value: "]", Position: start}, nil
	case '*', '+', '?':
		l.position++

		return Lexeme{Type: TokenQuant, Value: string(ch), Position: start}, nil
	case '"':
		return l.readString()
	case '@':
		l.position++

		name := l.readName()
		if name == "" {
			return Lexeme{}, syntaxError(start, "capture without a name")
		}

		return Lexeme{Type: TokenCapture, Value: name, Position: start}, nil
	}

	name := l.readName()
	if name == "" {
		return Lexeme{}, syntaxError(start, fmt.Sprintf("unexpected character %q", ch))
	}

	if l.position < len(l.input) && l.input[l.position] == ':' {
		l.position++

		return Lexeme{Type: TokenField, Value: name, Position: start}, nil
	}

	return Lexeme{Type: TokenIdent, Value: name, Position: start}, nil
}

func (l *Lexer) skipSpaceAndComments() {
	for l.position < len(l.input) {
		ch := l.input[l.position]

		switch {
		case ch == ';':
			end := strings.IndexByte(l.input[l.position:], '\n')
			if end < 0 {
				l.position = len(l.input)

				return
			}

			l.position += end + 1
		case unicode.IsSpace(rune(ch)):
			l.position++
		default:
			return
		}
	}
}

func isNameByte(ch byte) bool {
	return ch == '_' || ch == '-' || ch == '.' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func (l *Lexer) readName() string {
	start := l.position
	for l.position < len(l.input) && isNameByte(l.input[l.position]) {
		l.position++
	}

	return l.input[start:l.position]
}

func (l *Lexer) readString() (Lexeme, error) {
	start := l.position
	l.position++

	for l.position < len(l.input) {
		switch l.input[l.position] {
		case '\\':
			l.position += 2
		case '"':
			l.position++

			value, err := strconv.Unquote(l.input[start:l.position])
			if err != nil {
				return Lexeme{}, syntaxError(start, "invalid string literal")
			}

			return Lexeme{Type: TokenString, Value: value, Position: start}, nil
		default:
			l.position++
		}
	}

	return Lexeme{}, syntaxError(start, "unterminated string literal")
}

func syntaxError(position int, msg string) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, position, msg)
}
