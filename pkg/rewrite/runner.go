package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
	"github.com/Sumatoshi-tech/arborist/pkg/observability"
)

// SourceParser turns source text into a fresh tree whose root is node 0.
type SourceParser interface {
	Name() string
	Language() ast.Language
	ParseTree(ctx context.Context, source []byte) (*ast.Ast, error)
}

// RunResult is the outcome of one run.
type RunResult struct {
	Tree *ast.Ast
	// ID tags the log records and span of the run.
	ID       string
	Stats    Stats
	Root     ast.ID
	Duration time.Duration
}

// Runner parses input and rewrites it with a fixed rule list. A Runner holds
// no per-run state and may be shared between goroutines if its parser allows it.
type Runner struct {
	parser   SourceParser
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.RewriteMetrics
	rules    []Rule
	maxDepth int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(runner *Runner) {
		if logger != nil {
			runner.logger = logger
		}
	}
}

// WithTracer sets the tracer used for run, parse and rewrite spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(runner *Runner) {
		if tracer != nil {
			runner.tracer = tracer
		}
	}
}

// WithMetrics records every run into metrics.
func WithMetrics(metrics *observability.RewriteMetrics) Option {
	return func(runner *Runner) {
		runner.metrics = metrics
	}
}

// WithMaxDepth bounds rewrite recursion. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(runner *Runner) {
		runner.maxDepth = depth
	}
}

// NewRunner creates a Runner. Rules that implement [Validator] are checked
// against the parser's language so unknown kinds or fields fail here rather
// than on the first match.
func NewRunner(parser SourceParser, rules []Rule, opts ...Option) (*Runner, error) {
	runner := &Runner{
		parser: parser,
		rules:  rules,
		logger: slog.New(slog.DiscardHandler),
		tracer: nooptrace.NewTracerProvider().Tracer(""),
	}

	for _, opt := range opts {
		opt(runner)
	}

	var errs []error

	for _, rule := range rules {
		validator, ok := rule.(Validator)
		if !ok {
			continue
		}

		if err := validator.Validate(parser.Language()); err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", rule.Name(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return runner, nil
}

// Run parses input, rewrites it from the root and returns the final tree and
// its root. The rewrite of the root must yield exactly one node.
func (runner *Runner) Run(ctx context.Context, input []byte) (*ast.Ast, ast.ID, error) {
	result, err := runner.Execute(ctx, input)
	if err != nil {
		return nil, 0, err
	}

	return result.Tree, result.Root, nil
}

// Execute is Run with statistics.
func (runner *Runner) Execute(ctx context.Context, input []byte) (*RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := runner.logger.With(slog.String("run_id", runID))

	ctx, span := runner.tracer.Start(ctx, "arborist.run",
		trace.WithAttributes(
			attribute.String("arborist.run.id", runID),
			attribute.String("arborist.language", runner.parser.Name()),
			attribute.Int("arborist.input.bytes", len(input)),
			attribute.Int("arborist.rules", len(runner.rules)),
		))
	defer span.End()

	result, err := runner.execute(ctx, input, logger)

	duration := time.Since(start)

	record := observability.RunRecord{Language: runner.parser.Name(), Duration: duration, Err: err}
	if result != nil {
		result.ID = runID
		result.Duration = duration
		record.Fired = result.Stats.Fired
		record.Created = result.Stats.Created
	}

	runner.metrics.RecordRun(ctx, record)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "rewrite failed",
			slog.String("language", runner.parser.Name()),
			slog.Any("error", err))

		return nil, err
	}

	logger.InfoContext(ctx, "rewrite complete",
		slog.String("language", runner.parser.Name()),
		slog.Int("nodes", result.Tree.Len()),
		slog.Int("fired", result.Stats.FiredTotal()),
		slog.Duration("duration", duration))

	return result, nil
}

func (runner *Runner) execute(ctx context.Context, input []byte, logger *slog.Logger) (*RunResult, error) {
	parseCtx, parseSpan := runner.tracer.Start(ctx, "arborist.parse")
	tree, err := runner.parser.ParseTree(parseCtx, input)
	if err != nil {
		parseSpan.RecordError(err)
		parseSpan.End()

		return nil, fmt.Errorf("parse: %w", err)
	}

	parseSpan.SetAttributes(attribute.Int("arborist.nodes.parsed", tree.Len()))
	parseSpan.End()

	return runner.rewrite(ctx, tree, 0, logger)
}

// Rewrite applies the rules to an existing tree starting at root.
func (runner *Runner) Rewrite(ctx context.Context, tree *ast.Ast, root ast.ID) (*RunResult, error) {
	return runner.rewrite(ctx, tree, root, runner.logger)
}

func (runner *Runner) rewrite(ctx context.Context, tree *ast.Ast, root ast.ID, logger *slog.Logger) (*RunResult, error) {
	ctx, span := runner.tracer.Start(ctx, "arborist.rewrite",
		trace.WithAttributes(attribute.Int("arborist.nodes.before", tree.Len())))
	defer span.End()

	driver := NewDriver(runner.rules, runner.maxDepth, logger)

	ids, err := driver.Apply(ctx, tree, root)
	if err != nil {
		return nil, err
	}

	if len(ids) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrRootCount, len(ids))
	}

	stats := driver.Stats()
	span.SetAttributes(
		attribute.Int("arborist.nodes.after", tree.Len()),
		attribute.Int("arborist.rules.fired", stats.FiredTotal()))

	return &RunResult{Tree: tree, Root: ids[0], Stats: stats}, nil
}
