package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

func diffCmd(application *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <file|->",
		Short: "Show how a rule file changes the rendered tree of a file",
		Long: `Render the tree of a file before and after rewriting and print a line diff
of the two renders.

Examples:
  arborist diff --rules rules.yaml main.py
  arborist diff --rules rules.yaml --format tree main.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := application.rewrite(cmd, args[0])
			if err != nil {
				return err
			}

			// The arena is append-only, so the parsed root still renders the input.
			var before, after bytes.Buffer

			if err = render(&before, out.result.Tree, 0, application.cfg.Output.Format); err != nil {
				return err
			}

			if err = render(&after, out.result.Tree, out.result.Root, application.cfg.Output.Format); err != nil {
				return err
			}

			return writeLineDiff(cmd.OutOrStdout(), before.String(), after.String())
		},
	}

	addRewriteFlags(cmd)

	return cmd
}

func writeLineDiff(writer io.Writer, before, after string) error {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lines)

	if len(diffs) == 1 && diffs[0].Type == diffmatchpatch.DiffEqual {
		_, err := fmt.Fprintln(writer, "no changes")

		return err
	}

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	for _, diff := range diffs {
		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}

			line = strings.TrimSuffix(line, "\n")

			var err error

			switch diff.Type {
			case diffmatchpatch.DiffInsert:
				_, err = added.Fprintln(writer, "+ "+line)
			case diffmatchpatch.DiffDelete:
				_, err = removed.Fprintln(writer, "- "+line)
			case diffmatchpatch.DiffEqual:
				_, err = fmt.Fprintln(writer, "  "+line)
			}

			if err != nil {
				return err
			}
		}
	}

	return nil
}
