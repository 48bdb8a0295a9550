package grammar

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
	"github.com/Sumatoshi-tech/arborist/pkg/safeconv"
)

// NewTable reads the kind and field names of lang into an [ast.Table].
// Hidden and auxiliary symbols never appear in a tree and are left out.
func NewTable(lang *sitter.Language) *ast.Table {
	count := lang.SymbolCount()
	kinds := make(map[ast.KindID]ast.Kind, count)

	for idx := range count {
		symbol := sitter.Symbol(idx)

		symbolType := lang.SymbolType(symbol)
		if symbolType != sitter.SymbolTypeRegular && symbolType != sitter.SymbolTypeAnonymous {
			continue
		}

		kinds[ast.KindID(safeconv.MustUint32ToUint16(idx))] = ast.Kind{
			Name:  lang.SymbolName(symbol),
			Named: symbolType == sitter.SymbolTypeRegular,
		}
	}

	fields := make(map[ast.FieldID]string)

	// Field ids start at 1 and are dense; past the last one the name is empty.
	for idx := 1; ; idx++ {
		name := lang.FieldName(idx)
		if name == "" {
			break
		}

		fields[ast.FieldID(safeconv.MustIntToUint16(idx))] = name
	}

	return ast.NewTable(kinds, fields)
}
