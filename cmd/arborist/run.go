package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/arborist/pkg/grammar"
	"github.com/Sumatoshi-tech/arborist/pkg/rewrite"
	"github.com/Sumatoshi-tech/arborist/pkg/ruleset"
)

func runCmd(application *app) *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "run <file|->",
		Short: "Rewrite a source file with a rule file and render the result",
		Long: `Parse a source file, rewrite it with the rules of a rule file and render
the resulting tree.

Examples:
  arborist run --rules rules.yaml main.py
  arborist run --rules rules.yaml --format tree --stats main.py
  cat main.py | arborist run --rules rules.yaml --language python -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return application.rewriteFile(cmd, args[0], stats)
		},
	}

	addRewriteFlags(cmd)
	cmd.Flags().BoolVar(&stats, "stats", false, "print rewrite statistics to stderr")

	return cmd
}

// addRewriteFlags registers the flags shared by commands that rewrite.
func addRewriteFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("rules", "r", "", "rule file")
	cmd.Flags().StringP("language", "l", "", "grammar name (default: from rule file or detected)")
	cmd.Flags().StringP("format", "f", "json", "output format (json, yaml, tree)")
	cmd.Flags().Bool("color", false, "force colored output")
	cmd.Flags().Int("max-depth", 0, "rewrite recursion limit, 0 for none")
}

// rewritten is the outcome of parsing and rewriting one input.
type rewritten struct {
	result *rewrite.RunResult
	parser *grammar.Parser
	input  []byte
}

func (application *app) rewrite(cmd *cobra.Command, path string) (*rewritten, error) {
	if application.cfg.Rules == "" {
		return nil, ErrNoRules
	}

	doc, err := ruleset.Load(application.cfg.Rules)
	if err != nil {
		return nil, err
	}

	input, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}

	parser, err := application.parser(path, input, doc.Language)
	if err != nil {
		return nil, err
	}

	rules, err := doc.Compile(parser.Language())
	if err != nil {
		return nil, err
	}

	runner, err := application.runner(parser, rules)
	if err != nil {
		return nil, err
	}

	result, err := runner.Execute(cmd.Context(), input)
	if err != nil {
		return nil, fmt.Errorf("rewrite %s: %w", path, err)
	}

	return &rewritten{result: result, parser: parser, input: input}, nil
}

func (application *app) rewriteFile(cmd *cobra.Command, path string, stats bool) error {
	out, err := application.rewrite(cmd, path)
	if err != nil {
		return err
	}

	if stats {
		writeStats(cmd.ErrOrStderr(), out)
	}

	return render(cmd.OutOrStdout(), out.result.Tree, out.result.Root, application.cfg.Output.Format)
}

func writeStats(writer io.Writer, out *rewritten) {
	stats := out.result.Stats
	parsed := out.result.Tree.Len() - stats.Created

	fmt.Fprintf(writer, "%s: parsed %s (%s lines) into %s nodes, visited %s, copied %s, created %s in %s\n",
		out.parser.Name(),
		humanize.Bytes(uint64(len(out.input))),
		humanize.Comma(int64(countLines(out.input))),
		humanize.Comma(int64(parsed)),
		humanize.Comma(int64(stats.Visited)),
		humanize.Comma(int64(stats.Copied)),
		humanize.Comma(int64(stats.Created)),
		out.result.Duration)

	if len(stats.Fired) == 0 {
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(writer)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Rule", "Applications"})

	for _, name := range stats.RuleNames() {
		tbl.AppendRow(table.Row{name, humanize.Comma(int64(stats.Fired[name]))})
	}

	tbl.AppendFooter(table.Row{"Total", humanize.Comma(int64(stats.FiredTotal()))})
	tbl.Render()
}
