package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/arborist/pkg/grammar"
	"github.com/Sumatoshi-tech/arborist/pkg/ruleset"
)

func checkCmd(application *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <rules.yaml>",
		Short: "Validate a rule file against its schema and grammar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := color.New(color.FgRed)

			doc, err := ruleset.Load(args[0])
			if err != nil {
				failed.Fprintf(cmd.OutOrStdout(), "%s is invalid\n", args[0])

				return err
			}

			name := application.cfg.Language
			if name == "" {
				name = doc.Language
			}

			if name == "" {
				return fmt.Errorf("%w: set language in %s or pass --language", ErrNoLanguage, args[0])
			}

			parser, err := grammar.NewParser(name)
			if err != nil {
				return err
			}

			rules, err := doc.Compile(parser.Language())
			if err != nil {
				failed.Fprintf(cmd.OutOrStdout(), "%s is invalid for %s\n", args[0], name)

				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s: %d rules valid for %s\n", args[0], len(rules), name)

			return nil
		},
	}

	cmd.Flags().StringP("language", "l", "", "grammar name (default: from rule file)")

	return cmd
}
