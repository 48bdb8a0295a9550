// Package query matches declarative tree patterns against nodes of an [ast.Ast]
// and binds named captures to the matched node ids.
//
// Patterns are written in an S-expression syntax modeled on tree-sitter queries:
//
//	(call
//	  function: (identifier) @fn
//	  arguments: (argument_list "(" [(identifier) @args ","]* (identifier)? @args ")"))
//
// Square brackets group a sequence of elements so that a quantifier applies to
// the whole run. Patterns can also be assembled with the builder functions
// [Node], [Field], [Capture] and friends.
package query

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
)

// Sentinel errors for query construction and matching.
var (
	ErrUnknownKind  = errors.New("query references unknown kind")
	ErrUnknownField = errors.New("query references unknown field")
	ErrSyntax       = errors.New("query syntax error")
)

// Captures maps capture names to the node ids bound to them, in match order.
type Captures map[string][]ast.ID

// Get returns the ids bound to name.
func (caps Captures) Get(name string) []ast.ID {
	return caps[name]
}

// One returns the single id bound to name. It reports false when the name is
// bound to zero or several ids.
func (caps Captures) One(name string) (ast.ID, bool) {
	ids := caps[name]
	if len(ids) != 1 {
		return 0, false
	}

	return ids[0], true
}

func (caps Captures) snapshot() Captures {
	out := make(Captures, len(caps))
	for name, ids := range caps {
		out[name] = slices.Clone(ids)
	}

	return out
}

func (caps Captures) restore(from Captures) {
	clear(caps)
	maps.Copy(caps, from)
}

// Pattern matches a single node.
type Pattern interface {
	match(m *matcher, id ast.ID, caps Captures) (bool, error)
	captureNames(names []string) []string
	validate(lang ast.Language) error
	write(sb *strings.Builder)
}

// Elem matches a run of consecutive nodes in a child or field list.
type Elem interface {
	matchSeq(m *matcher, ids []ast.ID, caps Captures, next continuation) (bool, error)
	captureNames(names []string) []string
	validate(lang ast.Language) error
	write(sb *strings.Builder)
}

// Item is a constraint inside a node pattern: a field or the positional children.
type Item interface {
	apply(np *nodePattern)
}

// Query is a compiled pattern ready to be matched.
type Query struct {
	root     Pattern
	captures []string
}

// New wraps a root pattern into a Query.
func New(root Pattern) *Query {
	names := root.captureNames(nil)
	slices.Sort(names)

	return &Query{
		root:     root,
		captures: slices.Compact(names),
	}
}

// CaptureNames returns every capture name declared in the query, sorted.
func (q *Query) CaptureNames() []string {
	return slices.Clone(q.captures)
}

// Validate resolves every kind and field name against lang. It lets rule sets
// fail at load time instead of at the first match attempt.
func (q *Query) Validate(lang ast.Language) error {
	return q.root.validate(lang)
}

// String renders the query in S-expression syntax.
func (q *Query) String() string {
	var sb strings.Builder

	q.root.write(&sb)

	return sb.String()
}

// Match reports whether the query matches the node id of tree. On success,
// caps holds every capture bound during the match, and every capture name
// declared by the query is present, possibly with an empty list. On failure
// the content of caps is unspecified. Errors are reported only for names the
// grammar does not know.
func (q *Query) Match(tree *ast.Ast, id ast.ID, caps Captures) (bool, error) {
	m := &matcher{tree: tree, lang: tree.Language()}

	ok, err := q.root.match(m, id, caps)
	if err != nil || !ok {
		return false, err
	}

	for _, name := range q.captures {
		if _, bound := caps[name]; !bound {
			caps[name] = []ast.ID{}
		}
	}

	return true, nil
}

// Any matches every node.
func Any() Pattern {
	return anyPattern{}
}

// Token matches an anonymous node, such as punctuation, by its kind name.
func Token(kind string) Pattern {
	return tokenPattern{kind: kind}
}

// Node matches a named node of the given kind whose fields and children
// satisfy the items.
func Node(kind string, items ...Item) Pattern {
	np := &nodePattern{kind: kind}
	for _, item := range items {
		item.apply(np)
	}

	return np
}

// Capture binds every node matched by p to name.
func Capture(name string, p Pattern) Pattern {
	return capturePattern{name: name, inner: p}
}

// Field constrains the whole list of nodes under a field.
// Several Field items with the same name concatenate.
func Field(name string, elems ...Elem) Item {
	return fieldItem{name: name, elems: elems}
}

// Children constrains the whole positional children list.
func Children(elems ...Elem) Item {
	return childrenItem{elems: elems}
}

// One matches exactly one node with p.
func One(p Pattern) Elem {
	return single{pattern: p}
}

// Rep is a repetition quantifier.
type Rep int

// Repetition quantifiers.
const (
	ZeroOrOne Rep = iota
	ZeroOrMore
	OneOrMore
)

// Symbol returns the quantifier as written in query syntax.
func (rep Rep) Symbol() string {
	switch rep {
	case ZeroOrOne:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	default:
		return ""
	}
}

// Optional matches the sequence zero or one time.
func Optional(elems ...Elem) Elem {
	return repeated{elems: elems, rep: ZeroOrOne}
}

// Star matches the sequence any number of times.
func Star(elems ...Elem) Elem {
	return repeated{elems: elems, rep: ZeroOrMore}
}

// Plus matches the sequence at least once.
func Plus(elems ...Elem) Elem {
	return repeated{elems: elems, rep: OneOrMore}
}

type fieldItem struct {
	name  string
	elems []Elem
}

func (item fieldItem) apply(np *nodePattern) {
	for idx := range np.fields {
		if np.fields[idx].name == item.name {
			np.fields[idx].elems = append(np.fields[idx].elems, item.elems...)

			return
		}
	}

	np.fields = append(np.fields, fieldItem{name: item.name, elems: slices.Clone(item.elems)})
}

type childrenItem struct {
	elems []Elem
}

func (item childrenItem) apply(np *nodePattern) {
	np.children = append(np.children, item.elems...)
	np.hasChildren = true
}
