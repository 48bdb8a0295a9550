// Package main provides the arborist CLI: parse source files with a
// tree-sitter grammar, rewrite the tree with declarative rules and render it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/arborist/pkg/config"
	"github.com/Sumatoshi-tech/arborist/pkg/grammar"
	"github.com/Sumatoshi-tech/arborist/pkg/observability"
	"github.com/Sumatoshi-tech/arborist/pkg/rewrite"
	"github.com/Sumatoshi-tech/arborist/pkg/version"
)

// Sentinel errors for CLI commands.
var (
	ErrNoLanguage        = errors.New("no language given and none could be detected")
	ErrNoRules           = errors.New("no rule file given")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrBinaryInput       = errors.New("input looks binary")
)

func main() {
	version.InitBinaryVersion()

	application := newApp(observability.Init)

	err := application.execute(context.Background(), application.rootCmd())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initFunc sets up telemetry for one invocation.
type initFunc func(ctx context.Context, cfg observability.Config) (observability.Providers, error)

// app carries state shared by all commands of one invocation.
type app struct {
	cfg       *config.Config
	initObs   initFunc
	providers observability.Providers
	cfgFile   string
}

func newApp(initObs initFunc) *app {
	return &app{initObs: initObs}
}

// execute runs cmd and then flushes telemetry, also when cmd failed.
func (application *app) execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)

	return errors.Join(err, application.shutdown(ctx))
}

func (application *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arborist",
		Short: "Rewrite syntax trees with declarative rules",
		Long: `arborist parses source files with tree-sitter grammars into an
append-only node arena and rewrites them with ordered query/transform rules.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: application.setup,
	}

	rootCmd.PersistentFlags().StringVar(&application.cfgFile, "config", "", "config file (default is ./arborist.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd(application))
	rootCmd.AddCommand(printCmd(application))
	rootCmd.AddCommand(diffCmd(application))
	rootCmd.AddCommand(checkCmd(application))
	rootCmd.AddCommand(languagesCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func (application *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(application.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	if cfg.Output.Color {
		color.NoColor = false //nolint:reassign // forced by --color
	}

	obsCfg := cfg.Observability(version.Version)
	obsCfg.LogWriter = cmd.ErrOrStderr()

	providers, err := application.initObs(cmd.Context(), obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	application.cfg = cfg
	application.providers = providers

	return nil
}

func (application *app) shutdown(ctx context.Context) error {
	if application.providers.Shutdown == nil {
		return nil
	}

	err := application.providers.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("shutdown observability: %w", err)
	}

	return nil
}

// parser picks the grammar from configuration, the rule file, or the input
// file name, in that order.
func (application *app) parser(file string, source []byte, ruleLanguage string) (*grammar.Parser, error) {
	name := application.cfg.Language
	if name == "" {
		name = ruleLanguage
	}

	if name == "" {
		detected, err := grammar.Detect(file, source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoLanguage, err)
		}

		name = detected
	}

	return grammar.NewParser(name)
}

func (application *app) runner(parser *grammar.Parser, rules []rewrite.Rule) (*rewrite.Runner, error) {
	return rewrite.NewRunner(parser, rules,
		rewrite.WithLogger(application.providers.Logger),
		rewrite.WithTracer(application.providers.Tracer),
		rewrite.WithMetrics(application.providers.Metrics),
		rewrite.WithMaxDepth(application.cfg.Rewrite.MaxDepth))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "arborist %s\n", version.String())
		},
	}
}
