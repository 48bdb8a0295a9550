package ast

import (
	"encoding/json"
	"fmt"
)

// Rendering keys that are not field names.
const (
	printKeyContent = "content"
	printKeyRest    = "rest"
)

// Print renders the subtree rooted at id as nested maps keyed by kind name.
//
// A node without children or fields renders as {kind: content}. Any other node
// renders as {kind: {"content": ..., "rest": [children...], field: [...]}},
// where "rest" and each field key are present only when non-empty. Node ids
// are not rendered, so two structurally identical trees render identically.
func (a *Ast) Print(id ID) (map[string]any, error) {
	node, ok := a.GetNode(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	kind, ok := a.language.KindName(node.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: kind id %d", ErrUnknownKind, node.Kind)
	}

	text := node.Content.Text(a.source)

	entries := make(map[string]any)

	if len(node.Children) > 0 {
		rendered, err := a.printList(node.Children)
		if err != nil {
			return nil, err
		}

		entries[printKeyRest] = rendered
	}

	for _, field := range node.FieldIDs() {
		ids := node.Fields[field]
		if len(ids) == 0 {
			continue
		}

		name, found := a.language.FieldName(field)
		if !found {
			return nil, fmt.Errorf("%w: field id %d", ErrUnknownField, field)
		}

		rendered, err := a.printList(ids)
		if err != nil {
			return nil, err
		}

		entries[name] = rendered
	}

	if len(entries) == 0 {
		return map[string]any{kind: text}, nil
	}

	entries[printKeyContent] = text

	return map[string]any{kind: entries}, nil
}

func (a *Ast) printList(ids []ID) ([]any, error) {
	out := make([]any, 0, len(ids))

	for _, child := range ids {
		rendered, err := a.Print(child)
		if err != nil {
			return nil, err
		}

		out = append(out, rendered)
	}

	return out, nil
}

// PrintJSON renders the subtree rooted at id as indented JSON with sorted keys.
func (a *Ast) PrintJSON(id ID) ([]byte, error) {
	rendered, err := a.Print(id)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(rendered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode render: %w", err)
	}

	return data, nil
}
