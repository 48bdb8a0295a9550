package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal    = "arborist.runs.total"
	metricRunDuration  = "arborist.run.duration.seconds"
	metricRulesFired   = "arborist.rules.fired.total"
	metricNodesCreated = "arborist.nodes.created.total"
	metricErrorsTotal  = "arborist.errors.total"

	attrLanguage = "language"
	attrStatus   = "status"
	attrRule     = "rule"

	statusOK    = "ok"
	statusError = "error"
)

// Rewrites are usually sub-millisecond; large files reach seconds.
var runBucketBoundaries = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// RunRecord summarizes one completed rewrite run.
type RunRecord struct {
	Err      error
	Fired    map[string]int
	Language string
	Duration time.Duration
	Created  int
}

// RewriteMetrics holds the instruments recorded per Runner run.
type RewriteMetrics struct {
	runsTotal    metric.Int64Counter
	runDuration  metric.Float64Histogram
	rulesFired   metric.Int64Counter
	nodesCreated metric.Int64Counter
	errorsTotal  metric.Int64Counter
}

// NewRewriteMetrics creates the rewrite instruments from mt.
func NewRewriteMetrics(mt metric.Meter) (*RewriteMetrics, error) {
	runs, err := mt.Int64Counter(metricRunsTotal,
		metric.WithDescription("Completed rewrite runs"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Rewrite run duration including parsing"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(runBucketBoundaries...))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	fired, err := mt.Int64Counter(metricRulesFired,
		metric.WithDescription("Rule applications by rule name"),
		metric.WithUnit("{application}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRulesFired, err)
	}

	created, err := mt.Int64Counter(metricNodesCreated,
		metric.WithDescription("Arena nodes appended by rewriting"),
		metric.WithUnit("{node}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricNodesCreated, err)
	}

	errs, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Failed rewrite runs"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	return &RewriteMetrics{
		runsTotal:    runs,
		runDuration:  duration,
		rulesFired:   fired,
		nodesCreated: created,
		errorsTotal:  errs,
	}, nil
}

// RecordRun records one run. A nil receiver is a no-op.
func (rm *RewriteMetrics) RecordRun(ctx context.Context, rec RunRecord) {
	if rm == nil {
		return
	}

	status := statusOK
	if rec.Err != nil {
		status = statusError
	}

	lang := attribute.String(attrLanguage, rec.Language)
	attrs := metric.WithAttributes(lang, attribute.String(attrStatus, status))

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, rec.Duration.Seconds(), attrs)

	if rec.Err != nil {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(lang))
	}

	if rec.Created > 0 {
		rm.nodesCreated.Add(ctx, int64(rec.Created), metric.WithAttributes(lang))
	}

	for rule, count := range rec.Fired {
		rm.rulesFired.Add(ctx, int64(count), metric.WithAttributes(lang, attribute.String(attrRule, rule)))
	}
}
