package query_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
	"github.com/Sumatoshi-tech/arborist/pkg/query"
)

const (
	kindIdentifier ast.KindID = 1
	kindComma      ast.KindID = 2
	kindList       ast.KindID = 3
	kindComment    ast.KindID = 4
)

func listTable() *ast.Table {
	return ast.NewTable(
		map[ast.KindID]ast.Kind{
			kindIdentifier: {Name: "identifier", Named: true},
			kindComma:      {Name: ",", Named: false},
			kindList:       {Name: "list", Named: true},
			kindComment:    {Name: "comment", Named: true},
		},
		map[ast.FieldID]string{1: "items"},
	)
}

// newList builds a list node over the given names. With commas set, names
// are separated by "," tokens in the children list.
func newList(names []string, commas bool) (*ast.Ast, ast.ID, []ast.ID) {
	source := strings.Join(names, ",")
	tree := ast.New(listTable(), []byte(source))

	var (
		children []ast.ID
		items    []ast.ID
		offset   uint32
	)

	for idx, name := range names {
		if idx > 0 {
			if commas {
				children = append(children, tree.CreateNode(kindComma, ast.Span(offset, offset+1), nil, nil))
			}

			offset++
		}

		end := offset + uint32(len(name)) //nolint:gosec // short test names
		id := tree.CreateNode(kindIdentifier, ast.Span(offset, end), nil, nil)
		children = append(children, id)
		items = append(items, id)
		offset = end
	}

	root := tree.CreateNode(kindList, ast.Span(0, offset), nil, children)

	return tree, root, items
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []string{
		`(assignment left: (identifier) @name right: _ @value)`,
		`(assignment "=")`,
		`(list (identifier) @first ["," (identifier) @rest]*)`,
		`(list (identifier)+ @ids (comment)? @trailing)`,
		`(list items: (identifier)* @a @b)`,
		`(module (expression_statement)*) @root`,
		`(_ left: (identifier) @name _*)`,
	}

	for _, src := range cases {
		q, err := query.Parse(src)
		require.NoError(t, err, src)
		assert.Equal(t, src, q.String())
	}
}

func TestParse_CommentsAndWhitespace(t *testing.T) {
	t.Parallel()

	q, err := query.Parse(`
		; match simple assignments
		(assignment
		  left: (identifier) @name   ; the target
		  right: (_) @value)`)
	require.NoError(t, err)

	assert.Equal(t, `(assignment left: (identifier) @name right: _ @value)`, q.String())
	assert.Equal(t, []string{"name", "value"}, q.CaptureNames())
}

func TestParse_SyntaxErrors(t *testing.T) {
	t.Parallel()

	cases := []string{
		``,
		`(assignment`,
		`assignment`,
		`(assignment) (identifier)`,
		`(identifier)*`,
		`(list [(identifier) ","] @items)`,
		`(list [])`,
		`(list "unterminated)`,
		`(list @)`,
		`(list #)`,
		`(_`,
		`()`,
	}

	for _, src := range cases {
		_, err := query.Parse(src)
		require.ErrorIs(t, err, query.ErrSyntax, src)
	}
}

func TestMustParse_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { query.MustParse(`(broken`) })
	assert.NotPanics(t, func() { query.MustParse(`(identifier)`) })
}

func TestBuilders_MatchParsedForm(t *testing.T) {
	t.Parallel()

	built := query.New(query.Node("assignment",
		query.Field("left", query.One(query.Capture("name", query.Node("identifier")))),
		query.Field("right", query.One(query.Capture("value", query.Any()))),
		query.Children(query.One(query.Token("="))),
	))

	assert.Equal(t, `(assignment left: (identifier) @name right: _ @value "=")`, built.String())
}

func TestMatch_Example(t *testing.T) {
	t.Parallel()

	tree := ast.Example(ast.ExampleTable())
	q := query.MustParse(`(assignment left: (identifier) @name right: (integer) @value)`)

	caps := query.Captures{}
	ok, err := q.Match(tree, 0, caps)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, query.Captures{"name": {1}, "value": {3}}, caps)

	name, found := caps.One("name")
	require.True(t, found)
	assert.Equal(t, ast.ID(1), name)
}

func TestMatch_KindMismatch(t *testing.T) {
	t.Parallel()

	tree := ast.Example(ast.ExampleTable())

	for _, src := range []string{
		`(identifier)`,
		`(assignment left: (integer))`,
		`(assignment right: (identifier) @wrong)`,
		`(assignment (identifier))`,
		`(assignment left: [(identifier) (identifier)])`,
	} {
		ok, err := query.MustParse(src).Match(tree, 0, query.Captures{})
		require.NoError(t, err, src)
		assert.False(t, ok, src)
	}
}

func TestMatch_AnonymousTokenChild(t *testing.T) {
	t.Parallel()

	tree := ast.Example(ast.ExampleTable())

	ok, err := query.MustParse(`(assignment "=" @op)`).Match(tree, 0, query.Captures{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = query.MustParse(`"="`).Match(tree, 2, query.Captures{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_WildcardWithItems(t *testing.T) {
	t.Parallel()

	tree := ast.Example(ast.ExampleTable())

	caps := query.Captures{}
	ok, err := query.MustParse(`(_ left: (identifier) @name "=")`).Match(tree, 0, caps)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, query.Captures{"name": {1}}, caps)

	for _, tc := range []struct {
		src string
		id  ast.ID
	}{
		{`(_ left: (integer))`, 0},
		{`(_ right: _)`, 1},
		{`(_ (identifier))`, 0},
	} {
		ok, err = query.MustParse(tc.src).Match(tree, tc.id, query.Captures{})
		require.NoError(t, err, tc.src)
		assert.False(t, ok, tc.src)
	}

	require.NoError(t, query.MustParse(`(_ left: _)`).Validate(ast.ExampleTable()))
	require.ErrorIs(t, query.MustParse(`(_ bogus: _)`).Validate(ast.ExampleTable()), query.ErrUnknownField)
}

func TestMatch_NamednessSeparatesSameName(t *testing.T) {
	t.Parallel()

	const (
		kindTrueNode  ast.KindID = 1
		kindTrueToken ast.KindID = 2
	)

	table := ast.NewTable(
		map[ast.KindID]ast.Kind{
			kindTrueNode:  {Name: "true", Named: true},
			kindTrueToken: {Name: "true", Named: false},
		},
		nil,
	)

	tree := ast.New(table, []byte("true"))
	named := tree.CreateNode(kindTrueNode, ast.Span(0, 4), nil, nil)
	token := tree.CreateNode(kindTrueToken, ast.Span(0, 4), nil, nil)

	for _, tc := range []struct {
		src  string
		id   ast.ID
		want bool
	}{
		{`(true)`, named, true},
		{`(true)`, token, false},
		{`"true"`, token, true},
		{`"true"`, named, false},
	} {
		ok, err := query.MustParse(tc.src).Match(tree, tc.id, query.Captures{})
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, ok, "%s on node %d", tc.src, tc.id)
	}
}

func TestMatch_UnknownNames(t *testing.T) {
	t.Parallel()

	tree := ast.Example(ast.ExampleTable())

	_, err := query.MustParse(`(no_such_kind)`).Match(tree, 0, query.Captures{})
	require.ErrorIs(t, err, query.ErrUnknownKind)

	_, err = query.MustParse(`(assignment bogus: (identifier))`).Match(tree, 0, query.Captures{})
	require.ErrorIs(t, err, query.ErrUnknownField)

	_, err = query.MustParse(`(assignment "+=")`).Match(tree, 0, query.Captures{})
	require.ErrorIs(t, err, query.ErrUnknownKind)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	lang := ast.ExampleTable()

	require.NoError(t, query.MustParse(`(assignment left: (identifier) right: _ "=")`).Validate(lang))
	require.ErrorIs(t, query.MustParse(`(assignment left: (call))`).Validate(lang), query.ErrUnknownKind)
	require.ErrorIs(t, query.MustParse(`(assignment target: _)`).Validate(lang), query.ErrUnknownField)
	require.ErrorIs(t, query.MustParse(`(assignment [(integer) "=="]*)`).Validate(lang), query.ErrUnknownKind)
}

func TestValidate_SuggestsNearestName(t *testing.T) {
	t.Parallel()

	lang := ast.ExampleTable()

	err := query.MustParse(`(asignment)`).Validate(lang)
	require.ErrorIs(t, err, query.ErrUnknownKind)
	assert.Contains(t, err.Error(), `did you mean "assignment"?`)

	err = query.MustParse(`(assignment rigth: _)`).Validate(lang)
	require.ErrorIs(t, err, query.ErrUnknownField)
	assert.Contains(t, err.Error(), `did you mean "right"?`)

	err = query.MustParse(`(while_statement)`).Validate(lang)
	require.ErrorIs(t, err, query.ErrUnknownKind)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestMatch_RepeatedGroup(t *testing.T) {
	t.Parallel()

	tree, root, items := newList([]string{"a", "b", "c"}, true)
	q := query.MustParse(`(list (identifier) @first ["," (identifier) @rest]*)`)

	caps := query.Captures{}
	ok, err := q.Match(tree, root, caps)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []ast.ID{items[0]}, caps["first"])
	assert.Equal(t, []ast.ID{items[1], items[2]}, caps["rest"])
}

func TestMatch_CaptureCompleteness(t *testing.T) {
	t.Parallel()

	tree, root, items := newList([]string{"a"}, true)
	q := query.MustParse(`(list (identifier) @first ["," (identifier) @rest]* (comment)? @trailing)`)

	caps := query.Captures{}
	ok, err := q.Match(tree, root, caps)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Len(t, caps, len(q.CaptureNames()))
	assert.Equal(t, []ast.ID{items[0]}, caps["first"])
	assert.Empty(t, caps["rest"])
	assert.NotNil(t, caps["rest"])
	assert.Empty(t, caps["trailing"])
}

func TestMatch_GreedyStarBacktracks(t *testing.T) {
	t.Parallel()

	tree, root, items := newList([]string{"a", "b", "c"}, false)
	q := query.MustParse(`(list (identifier)* @head (identifier) @last)`)

	caps := query.Captures{}
	ok, err := q.Match(tree, root, caps)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []ast.ID{items[0], items[1]}, caps["head"])
	assert.Equal(t, []ast.ID{items[2]}, caps["last"])
}

func TestMatch_PlusRequiresOne(t *testing.T) {
	t.Parallel()

	tree, root, _ := newList([]string{"a"}, false)

	ok, err := query.MustParse(`(list (identifier) (comment)+)`).Match(tree, root, query.Captures{})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = query.MustParse(`(list (identifier)+ @ids)`).Match(tree, root, query.Captures{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_OptionalGivesBack(t *testing.T) {
	t.Parallel()

	tree, root, items := newList([]string{"a"}, false)

	caps := query.Captures{}
	ok, err := query.MustParse(`(list (identifier)? @maybe (identifier) @required)`).Match(tree, root, caps)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Empty(t, caps["maybe"])
	assert.Equal(t, []ast.ID{items[0]}, caps["required"])
}

func TestMatch_NestedStarTerminates(t *testing.T) {
	t.Parallel()

	tree, root, _ := newList([]string{"a", "b"}, false)

	ok, err := query.MustParse(`(list [(comment)?]* (identifier)*)`).Match(tree, root, query.Captures{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_ChildrenUnconstrainedWithoutPositionalItems(t *testing.T) {
	t.Parallel()

	tree, root, _ := newList([]string{"a", "b"}, true)

	ok, err := query.MustParse(`(list) @whole`).Match(tree, root, query.Captures{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = query.MustParse(`(list items: (identifier)*)`).Match(tree, root, query.Captures{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = query.MustParse(`(list items: (identifier)+)`).Match(tree, root, query.Captures{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatch_IsRepeatableAndPure(t *testing.T) {
	t.Parallel()

	tree, root, _ := newList([]string{"a", "b", "c"}, true)
	q := query.MustParse(`(list (identifier) @first ["," (identifier) @rest]*) @all`)
	before := tree.Len()

	first := query.Captures{}
	ok, err := q.Match(tree, root, first)
	require.NoError(t, err)
	require.True(t, ok)

	second := query.Captures{}
	ok, err = q.Match(tree, root, second)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, before, tree.Len())
}

func TestMatch_MissingNode(t *testing.T) {
	t.Parallel()

	tree := ast.Example(ast.ExampleTable())

	_, err := query.MustParse(`_`).Match(tree, 42, query.Captures{})
	require.ErrorIs(t, err, ast.ErrNodeNotFound)
}

func TestCaptures_One(t *testing.T) {
	t.Parallel()

	caps := query.Captures{"many": {1, 2}, "none": {}}

	_, ok := caps.One("many")
	assert.False(t, ok)

	_, ok = caps.One("none")
	assert.False(t, ok)

	_, ok = caps.One("absent")
	assert.False(t, ok)
	assert.Equal(t, []ast.ID{1, 2}, caps.Get("many"))
}
