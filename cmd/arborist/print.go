package main

import (
	"github.com/spf13/cobra"
)

func printCmd(application *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print <file|->",
		Short: "Render the arena built from a source file without rewriting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			parser, err := application.parser(args[0], input, "")
			if err != nil {
				return err
			}

			tree, err := parser.ParseTree(cmd.Context(), input)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), tree, 0, application.cfg.Output.Format)
		},
	}

	cmd.Flags().StringP("language", "l", "", "grammar name (default: detected)")
	cmd.Flags().StringP("format", "f", "json", "output format (json, yaml, tree)")
	cmd.Flags().Bool("color", false, "force colored output")

	return cmd
}
