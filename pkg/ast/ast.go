// Package ast provides the arena-indexed syntax tree that rewrite passes operate on.
//
// Every node lives in a single append-only slice owned by [Ast]. A node's [ID] is its
// index in that slice, so ids stay valid for the whole lifetime of the tree no matter
// how many nodes are appended later. Nodes are never mutated or freed once created.
package ast

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ID is the arena index of a node.
type ID int

// KindID identifies a syntactic category in the grammar's kind table.
type KindID uint16

// FieldID identifies a named structural slot in the grammar's field table.
// Field id 0 is reserved by tree-sitter and means "no field".
type FieldID uint16

// Sentinel errors for arena operations.
var (
	ErrNodeNotFound = errors.New("node not found")
	ErrUnknownKind  = errors.New("unknown node kind")
	ErrUnknownField = errors.New("unknown field")
)

// Node is a single tree unit stored in the arena.
type Node struct {
	Content  Content
	Fields   map[FieldID][]ID
	Children []ID
	ID       ID
	Kind     KindID
}

// FieldIDs returns the node's field ids in ascending order.
// All traversals that must be deterministic iterate fields through this method.
func (n *Node) FieldIDs() []FieldID {
	return slices.Sorted(maps.Keys(n.Fields))
}

// IsLeaf reports whether the node has neither children nor fields.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0 && len(n.Fields) == 0
}

// Ast owns the node arena, the grammar descriptor used to resolve names and
// the source text that range content points into.
type Ast struct {
	language Language
	source   []byte
	nodes    []Node
}

// New creates an empty Ast over the given source.
func New(language Language, source []byte) *Ast {
	return &Ast{
		language: language,
		source:   source,
	}
}

// Language returns the grammar descriptor of the tree.
func (a *Ast) Language() Language {
	return a.language
}

// Source returns the source text the tree was built from.
func (a *Ast) Source() []byte {
	return a.source
}

// Nodes returns the arena. The returned slice must not be modified.
func (a *Ast) Nodes() []Node {
	return a.nodes
}

// Len returns the number of nodes in the arena.
func (a *Ast) Len() int {
	return len(a.nodes)
}

// GetNode returns the node with the given id, or false if the id is out of range.
func (a *Ast) GetNode(id ID) (*Node, bool) {
	if id < 0 || int(id) >= len(a.nodes) {
		return nil, false
	}

	return &a.nodes[id], true
}

// MustNode returns the node with the given id and panics if it does not exist.
// Use only for ids obtained from this arena.
func (a *Ast) MustNode(id ID) *Node {
	node, ok := a.GetNode(id)
	if !ok {
		panic(fmt.Sprintf("ast: %v: %d", ErrNodeNotFound, id))
	}

	return node
}

// CreateNode appends a node and returns its id. Kind and field ids are not
// validated against the grammar.
func (a *Ast) CreateNode(kind KindID, content Content, fields map[FieldID][]ID, children []ID) ID {
	id := ID(len(a.nodes))
	a.nodes = append(a.nodes, Node{
		ID:       id,
		Kind:     kind,
		Content:  content,
		Fields:   fields,
		Children: children,
	})

	return id
}

// CreateToken creates a leaf node with synthesized content. The kind name is
// resolved as a named kind first and as an anonymous token second.
func (a *Ast) CreateToken(kindName, content string) (ID, error) {
	kind, ok := a.resolveKind(kindName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}

	return a.CreateNode(kind, StringContent(content), nil, nil), nil
}

// CopyNode appends a copy of the node with id, replacing its fields and
// children with the given ones. The copy gets a fresh id.
func (a *Ast) CopyNode(id ID, fields map[FieldID][]ID, children []ID) (ID, error) {
	node, ok := a.GetNode(id)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	return a.CreateNode(node.Kind, node.Content, fields, children), nil
}

// KindName returns the grammar name of the node's kind.
func (a *Ast) KindName(id ID) (string, bool) {
	node, ok := a.GetNode(id)
	if !ok {
		return "", false
	}

	return a.language.KindName(node.Kind)
}

// Text returns the decoded content of a node.
func (a *Ast) Text(id ID) (string, bool) {
	node, ok := a.GetNode(id)
	if !ok {
		return "", false
	}

	return node.Content.Text(a.source), true
}

func (a *Ast) resolveKind(name string) (KindID, bool) {
	if kind, ok := a.language.KindID(name, true); ok {
		return kind, true
	}

	return a.language.KindID(name, false)
}
