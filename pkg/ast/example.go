package ast

// Kind and field ids of the python grammar used by [Example].
const (
	exampleKindIdentifier KindID = 1
	exampleKindEquals     KindID = 17
	exampleKindInteger    KindID = 110
	exampleKindAssignment KindID = 276

	exampleFieldLeft  FieldID = 18
	exampleFieldRight FieldID = 28
)

// exampleSource is the text the example tree was parsed from.
const exampleSource = "x = 1"

// ExampleTable returns a grammar table holding the kinds and fields used by [Example].
func ExampleTable() *Table {
	return NewTable(
		map[KindID]Kind{
			exampleKindIdentifier: {Name: "identifier", Named: true},
			exampleKindEquals:     {Name: "=", Named: false},
			exampleKindInteger:    {Name: "integer", Named: true},
			exampleKindAssignment: {Name: "assignment", Named: true},
		},
		map[FieldID]string{
			exampleFieldLeft:  "left",
			exampleFieldRight: "right",
		},
	)
}

// Example returns the four node tree of the python statement "x = 1",
// for tests and for filling gaps while a grammar is being wired up.
func Example(language Language) *Ast {
	return &Ast{
		language: language,
		source:   []byte(exampleSource),
		nodes: []Node{
			{
				ID:       0,
				Kind:     exampleKindAssignment,
				Content:  Span(0, 5),
				Children: []ID{2},
				Fields: map[FieldID][]ID{
					exampleFieldLeft:  {1},
					exampleFieldRight: {3},
				},
			},
			{ID: 1, Kind: exampleKindIdentifier, Content: Span(0, 1)},
			{ID: 2, Kind: exampleKindEquals, Content: Span(2, 3)},
			{ID: 3, Kind: exampleKindInteger, Content: Span(4, 5)},
		},
	}
}
