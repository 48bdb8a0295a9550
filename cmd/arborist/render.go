package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
	"github.com/Sumatoshi-tech/arborist/pkg/config"
)

const yamlIndent = 2

func render(writer io.Writer, tree *ast.Ast, root ast.ID, format string) error {
	switch format {
	case config.FormatJSON:
		data, err := tree.PrintJSON(root)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(writer, "%s\n", data)

		return err
	case config.FormatYAML:
		rendered, err := tree.Print(root)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(writer)
		enc.SetIndent(yamlIndent)

		if err = enc.Encode(rendered); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case config.FormatTree:
		out := &outliner{
			writer: writer,
			tree:   tree,
			kind:   color.New(color.FgCyan),
			field:  color.New(color.FgYellow),
			text:   color.New(color.FgGreen),
		}

		return out.node(root, 0, "")
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// outliner writes one line per node, indented by depth. Field members are
// prefixed with the field name; synthesized leaves are marked with "*".
type outliner struct {
	writer io.Writer
	tree   *ast.Ast
	kind   *color.Color
	field  *color.Color
	text   *color.Color
}

func (out *outliner) node(id ast.ID, depth int, field string) error {
	node, ok := out.tree.GetNode(id)
	if !ok {
		return fmt.Errorf("%w: %d", ast.ErrNodeNotFound, id)
	}

	kind, ok := out.tree.KindName(id)
	if !ok {
		kind = "#" + strconv.Itoa(int(node.Kind))
	}

	var line strings.Builder

	line.WriteString(strings.Repeat("  ", depth))

	if field != "" {
		line.WriteString(out.field.Sprint(field + ": "))
	}

	line.WriteString(out.kind.Sprint(kind))

	if node.IsLeaf() {
		text, _ := out.tree.Text(id)
		line.WriteString(" " + out.text.Sprint(strconv.Quote(text)))
	}

	if node.Content.Synthesized() {
		line.WriteString(" *")
	}

	if _, err := fmt.Fprintln(out.writer, line.String()); err != nil {
		return err
	}

	lang := out.tree.Language()

	for _, fieldID := range node.FieldIDs() {
		name, found := lang.FieldName(fieldID)
		if !found {
			name = "#" + strconv.Itoa(int(fieldID))
		}

		for _, child := range node.Fields[fieldID] {
			if err := out.node(child, depth+1, name); err != nil {
				return err
			}
		}
	}

	for _, child := range node.Children {
		if err := out.node(child, depth+1, ""); err != nil {
			return err
		}
	}

	return nil
}
