package grammar

import (
	"fmt"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
)

// Build converts a concrete syntax tree into an arena. Every CST node,
// anonymous tokens included, becomes one arena node; ids are assigned in
// pre-order so the root is 0. Children reached through a field go into that
// field's list, all others into Children, both in source order.
func Build(root sitter.Node, table *ast.Table, source []byte) (*ast.Ast, error) {
	walker := &cstWalker{
		builder: ast.NewBuilder(table, source),
		table:   table,
	}

	if _, err := walker.visit(root); err != nil {
		return nil, err
	}

	return walker.builder.Ast()
}

type cstWalker struct {
	builder *ast.Builder
	table   *ast.Table
}

func (walker *cstWalker) visit(tsNode sitter.Node) (ast.ID, error) {
	id := walker.builder.Reserve()

	var (
		fields   map[ast.FieldID][]ast.ID
		children []ast.ID
	)

	cursor := sitter.NewTreeCursor(tsNode)

	if cursor.GoToFirstChild() {
		for {
			fieldName := cursor.CurrentFieldName()

			childID, err := walker.visit(cursor.CurrentNode())
			if err != nil {
				return 0, err
			}

			if fieldName == "" {
				children = append(children, childID)
			} else {
				field, ok := walker.table.FieldID(fieldName)
				if !ok {
					return 0, fmt.Errorf("%w: %q", ast.ErrUnknownField, fieldName)
				}

				if fields == nil {
					fields = make(map[ast.FieldID][]ast.ID)
				}

				fields[field] = append(fields[field], childID)
			}

			if !cursor.GoToNextSibling() {
				break
			}
		}
	}

	err := walker.builder.Fill(id, ast.KindID(tsNode.Symbol()), rangeOf(tsNode), fields, children)
	if err != nil {
		return 0, fmt.Errorf("fill %s: %w", tsNode.Type(), err)
	}

	return id, nil
}

func rangeOf(tsNode sitter.Node) ast.RangeContent {
	start, end := tsNode.StartPoint(), tsNode.EndPoint()

	return ast.RangeContent{
		StartByte:  tsNode.StartByte(),
		EndByte:    tsNode.EndByte(),
		StartPoint: ast.Point{Row: start.Row, Column: start.Column},
		EndPoint:   ast.Point{Row: end.Row, Column: end.Column},
	}
}
