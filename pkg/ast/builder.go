package ast

import "fmt"

// Builder populates an arena in pre-order, so that a parent is allocated
// before its children and the root of the tree gets id 0. A node's slot is
// reserved first and filled once its children exist. The resulting [Ast] is
// append-only from the moment it is returned by [Builder.Ast].
type Builder struct {
	ast    *Ast
	filled []bool
}

// NewBuilder creates a Builder for a tree over source.
func NewBuilder(language Language, source []byte) *Builder {
	return &Builder{ast: New(language, source)}
}

// Reserve allocates the next id without populating it.
func (builder *Builder) Reserve() ID {
	id := ID(len(builder.ast.nodes))
	builder.ast.nodes = append(builder.ast.nodes, Node{ID: id})
	builder.filled = append(builder.filled, false)

	return id
}

// Fill populates a reserved slot. Each slot can be filled exactly once.
func (builder *Builder) Fill(id ID, kind KindID, content Content, fields map[FieldID][]ID, children []ID) error {
	if id < 0 || int(id) >= len(builder.filled) {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	if builder.filled[id] {
		return fmt.Errorf("ast builder: slot %d already filled", id)
	}

	builder.ast.nodes[id] = Node{
		ID:       id,
		Kind:     kind,
		Content:  content,
		Fields:   fields,
		Children: children,
	}
	builder.filled[id] = true

	return nil
}

// Ast returns the built tree. Unfilled slots are reported as an error.
func (builder *Builder) Ast() (*Ast, error) {
	for id, done := range builder.filled {
		if !done {
			return nil, fmt.Errorf("ast builder: slot %d reserved but never filled", id)
		}
	}

	return builder.ast, nil
}
