package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/arborist/pkg/grammar"
)

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the built-in grammars",
		Long: `List the built-in grammars with the number of node kinds and fields each
defines. Other go-sitter-forest grammar names are accepted by --language too.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Language", "Kinds", "Fields"})

			for _, name := range grammar.Names() {
				lang, err := grammar.Lookup(name)
				if err != nil {
					return err
				}

				kinds := grammar.NewTable(lang)
				tbl.AppendRow(table.Row{name, kinds.KindCount(), len(kinds.FieldNames())})
			}

			tbl.Render()

			return nil
		},
	}
}
