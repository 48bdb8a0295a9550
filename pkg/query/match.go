package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
	"github.com/Sumatoshi-tech/arborist/pkg/suggest"
)

// continuation is invoked with the ids left over after an element matched a
// prefix of a list. It lets repetitions backtrack into shorter prefixes.
type continuation func(rest []ast.ID) (bool, error)

type matcher struct {
	tree *ast.Ast
	lang ast.Language
}

func (m *matcher) node(id ast.ID) (*ast.Node, error) {
	node, ok := m.tree.GetNode(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ast.ErrNodeNotFound, id)
	}

	return node, nil
}

// vocabulary is implemented by languages that can enumerate their names.
type vocabulary interface {
	KindNames(named bool) []string
	FieldNames() []string
}

func unknownKind(lang ast.Language, name string, named bool) error {
	hint := ""
	if vocab, ok := lang.(vocabulary); ok {
		hint = suggest.Hint(name, vocab.KindNames(named))
	}

	return fmt.Errorf("%w: %q%s", ErrUnknownKind, name, hint)
}

func unknownField(lang ast.Language, name string) error {
	hint := ""
	if vocab, ok := lang.(vocabulary); ok {
		hint = suggest.Hint(name, vocab.FieldNames())
	}

	return fmt.Errorf("%w: %q%s", ErrUnknownField, name, hint)
}

// kindIs compares by name and namedness so that aliased kinds sharing a name
// all match, while a token never satisfies a node pattern of the same name.
func (m *matcher) kindIs(node *ast.Node, name string, named bool) (bool, error) {
	if _, known := m.lang.KindID(name, named); !known {
		return false, unknownKind(m.lang, name, named)
	}

	actual, ok := m.lang.KindName(node.Kind)
	if !ok || actual != name {
		return false, nil
	}

	isNamed, _ := m.lang.KindNamed(node.Kind)

	return isNamed == named, nil
}

// matchAll requires elems to consume the whole list.
func matchAll(m *matcher, elems []Elem, ids []ast.ID, caps Captures) (bool, error) {
	return matchElems(m, elems, ids, caps, func(rest []ast.ID) (bool, error) {
		return len(rest) == 0, nil
	})
}

func matchElems(m *matcher, elems []Elem, ids []ast.ID, caps Captures, next continuation) (bool, error) {
	if len(elems) == 0 {
		return next(ids)
	}

	return elems[0].matchSeq(m, ids, caps, func(rest []ast.ID) (bool, error) {
		return matchElems(m, elems[1:], rest, caps, next)
	})
}

type anyPattern struct{}

func (anyPattern) match(m *matcher, id ast.ID, _ Captures) (bool, error) {
	if _, err := m.node(id); err != nil {
		return false, err
	}

	return true, nil
}

func (anyPattern) captureNames(names []string) []string { return names }

func (anyPattern) validate(_ ast.Language) error { return nil }

func (anyPattern) write(sb *strings.Builder) { sb.WriteString("_") }

type tokenPattern struct {
	kind string
}

func (tp tokenPattern) match(m *matcher, id ast.ID, _ Captures) (bool, error) {
	node, err := m.node(id)
	if err != nil {
		return false, err
	}

	return m.kindIs(node, tp.kind, false)
}

func (tokenPattern) captureNames(names []string) []string { return names }

func (tp tokenPattern) validate(lang ast.Language) error {
	if _, ok := lang.KindID(tp.kind, false); !ok {
		return unknownKind(lang, tp.kind, false)
	}

	return nil
}

func (tp tokenPattern) write(sb *strings.Builder) { sb.WriteString(strconv.Quote(tp.kind)) }

// wildcard in kind position lets a node pattern constrain fields and
// children of any node.
const wildcard = "_"

type nodePattern struct {
	kind        string
	fields      []fieldItem
	children    []Elem
	hasChildren bool
}

func (np *nodePattern) match(m *matcher, id ast.ID, caps Captures) (bool, error) {
	node, err := m.node(id)
	if err != nil {
		return false, err
	}

	if np.kind != wildcard {
		ok, err := m.kindIs(node, np.kind, true)
		if err != nil || !ok {
			return false, err
		}
	}

	for _, field := range np.fields {
		fieldID, known := m.lang.FieldID(field.name)
		if !known {
			return false, unknownField(m.lang, field.name)
		}

		ok, err := matchAll(m, field.elems, node.Fields[fieldID], caps)
		if err != nil || !ok {
			return false, err
		}
	}

	if !np.hasChildren {
		return true, nil
	}

	return matchAll(m, np.children, node.Children, caps)
}

func (np *nodePattern) captureNames(names []string) []string {
	for _, field := range np.fields {
		for _, elem := range field.elems {
			names = elem.captureNames(names)
		}
	}

	for _, elem := range np.children {
		names = elem.captureNames(names)
	}

	return names
}

func (np *nodePattern) validate(lang ast.Language) error {
	if _, ok := lang.KindID(np.kind, true); !ok && np.kind != wildcard {
		return unknownKind(lang, np.kind, true)
	}

	for _, field := range np.fields {
		if _, ok := lang.FieldID(field.name); !ok {
			return unknownField(lang, field.name)
		}

		for _, elem := range field.elems {
			if err := elem.validate(lang); err != nil {
				return err
			}
		}
	}

	for _, elem := range np.children {
		if err := elem.validate(lang); err != nil {
			return err
		}
	}

	return nil
}

func (np *nodePattern) write(sb *strings.Builder) {
	sb.WriteString("(")
	sb.WriteString(np.kind)

	for _, field := range np.fields {
		for _, elem := range field.elems {
			sb.WriteString(" ")
			sb.WriteString(field.name)
			sb.WriteString(": ")
			elem.write(sb)
		}
	}

	for _, elem := range np.children {
		sb.WriteString(" ")
		elem.write(sb)
	}

	sb.WriteString(")")
}

type capturePattern struct {
	inner Pattern
	name  string
}

func (cp capturePattern) match(m *matcher, id ast.ID, caps Captures) (bool, error) {
	ok, err := cp.inner.match(m, id, caps)
	if err != nil || !ok {
		return false, err
	}

	caps[cp.name] = append(caps[cp.name], id)

	return true, nil
}

func (cp capturePattern) captureNames(names []string) []string {
	return append(cp.inner.captureNames(names), cp.name)
}

func (cp capturePattern) validate(lang ast.Language) error { return cp.inner.validate(lang) }

func (cp capturePattern) write(sb *strings.Builder) {
	base, names := unwrapCaptures(cp)
	base.write(sb)
	writeCaptureNames(sb, names)
}

// unwrapCaptures peels nested captures off p and returns the names innermost first.
func unwrapCaptures(p Pattern) (Pattern, []string) {
	var names []string

	for {
		cp, ok := p.(capturePattern)
		if !ok {
			break
		}

		names = append(names, cp.name)
		p = cp.inner
	}

	slices.Reverse(names)

	return p, names
}

func writeCaptureNames(sb *strings.Builder, names []string) {
	for _, name := range names {
		sb.WriteString(" @")
		sb.WriteString(name)
	}
}

type single struct {
	pattern Pattern
}

func (s single) matchSeq(m *matcher, ids []ast.ID, caps Captures, next continuation) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}

	saved := caps.snapshot()

	ok, err := s.pattern.match(m, ids[0], caps)
	if err != nil {
		return false, err
	}

	if ok {
		ok, err = next(ids[1:])
		if err != nil || ok {
			return ok, err
		}
	}

	caps.restore(saved)

	return false, nil
}

func (s single) captureNames(names []string) []string { return s.pattern.captureNames(names) }

func (s single) validate(lang ast.Language) error { return s.pattern.validate(lang) }

func (s single) write(sb *strings.Builder) { s.pattern.write(sb) }

type repeated struct {
	elems []Elem
	rep   Rep
}

func (r repeated) matchSeq(m *matcher, ids []ast.ID, caps Captures, next continuation) (bool, error) {
	switch r.rep {
	case ZeroOrOne:
		saved := caps.snapshot()

		ok, err := matchElems(m, r.elems, ids, caps, next)
		if err != nil || ok {
			return ok, err
		}

		caps.restore(saved)

		return next(ids)
	case OneOrMore:
		saved := caps.snapshot()

		ok, err := matchElems(m, r.elems, ids, caps, func(rest []ast.ID) (bool, error) {
			return r.star(m, rest, caps, next)
		})
		if err != nil || ok {
			return ok, err
		}

		caps.restore(saved)

		return false, nil
	default:
		return r.star(m, ids, caps, next)
	}
}

// star matches greedily, giving back iterations when the rest of the list fails.
func (r repeated) star(m *matcher, ids []ast.ID, caps Captures, next continuation) (bool, error) {
	saved := caps.snapshot()

	ok, err := matchElems(m, r.elems, ids, caps, func(rest []ast.ID) (bool, error) {
		// An iteration that consumed nothing would loop forever.
		if len(rest) == len(ids) {
			return false, nil
		}

		return r.star(m, rest, caps, next)
	})
	if err != nil || ok {
		return ok, err
	}

	caps.restore(saved)

	return next(ids)
}

func (r repeated) captureNames(names []string) []string {
	for _, elem := range r.elems {
		names = elem.captureNames(names)
	}

	return names
}

func (r repeated) validate(lang ast.Language) error {
	for _, elem := range r.elems {
		if err := elem.validate(lang); err != nil {
			return err
		}
	}

	return nil
}

func (r repeated) write(sb *strings.Builder) {
	if len(r.elems) == 1 {
		if s, ok := r.elems[0].(single); ok {
			base, names := unwrapCaptures(s.pattern)
			base.write(sb)
			sb.WriteString(r.rep.Symbol())
			writeCaptureNames(sb, names)

			return
		}
	}

	sb.WriteString("[")

	for idx, elem := range r.elems {
		if idx > 0 {
			sb.WriteString(" ")
		}

		elem.write(sb)
	}

	sb.WriteString("]")
	sb.WriteString(r.rep.Symbol())
}
