package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
)

// Sentinel errors for rewrite passes.
var (
	ErrRootCount     = errors.New("rewrite of the root produced other than one node")
	ErrDepthExceeded = errors.New("rewrite recursion depth exceeded")
)

// Stats counts what happened during one rewrite pass.
type Stats struct {
	Fired   map[string]int
	Visited int
	Copied  int
	Created int
}

// FiredTotal returns the number of rule applications over all rules.
func (stats *Stats) FiredTotal() int {
	total := 0
	for _, count := range stats.Fired {
		total += count
	}

	return total
}

// RuleNames returns the names of the rules that fired, sorted.
func (stats *Stats) RuleNames() []string {
	return slices.Sorted(maps.Keys(stats.Fired))
}

// Driver runs one rewrite pass. A Driver is not safe for concurrent use; the
// arena it rewrites is owned by the calling goroutine.
type Driver struct {
	logger   *slog.Logger
	rules    []Rule
	stats    Stats
	maxDepth int
	fresh    ast.ID
	placed   map[ast.ID]struct{}
}

// NewDriver creates a Driver over rules, tried in order at every node.
// A maxDepth of zero disables the recursion guard.
func NewDriver(rules []Rule, maxDepth int, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Driver{
		rules:    rules,
		maxDepth: maxDepth,
		logger:   logger,
		stats:    Stats{Fired: make(map[string]int)},
		placed:   make(map[ast.ID]struct{}),
	}
}

// Stats returns the counters collected so far.
func (driver *Driver) Stats() Stats {
	return driver.stats
}

// Apply rewrites the subtree rooted at id and returns the ids that replace it.
//
// At each node the first rule that applies wins, and its output is rewritten
// again, so a rule may feed another. When no rule applies the node is copied
// into a new slot with its fields and children rewritten recursively. Nodes
// are never modified in place. A node that existed before the pass is copied
// even when nothing below it changed; a node created by a transform during
// the pass is kept as is the first time it is placed, unless its subtree was
// rewritten; every further placement of the same id gets its own copy, so the
// result never shares a node between two parents.
func (driver *Driver) Apply(ctx context.Context, tree *ast.Ast, id ast.ID) ([]ast.ID, error) {
	before := tree.Len()
	driver.fresh = ast.ID(before)
	clear(driver.placed)

	out, err := driver.apply(ctx, tree, id, 0)

	driver.stats.Created += tree.Len() - before

	return out, err
}

// Apply runs a single pass of rules over the subtree at id.
func Apply(ctx context.Context, rules []Rule, tree *ast.Ast, id ast.ID) ([]ast.ID, error) {
	return NewDriver(rules, 0, nil).Apply(ctx, tree, id)
}

func (driver *Driver) apply(ctx context.Context, tree *ast.Ast, id ast.ID, depth int) ([]ast.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if driver.maxDepth > 0 && depth > driver.maxDepth {
		return nil, fmt.Errorf("%w: limit %d at node %d", ErrDepthExceeded, driver.maxDepth, id)
	}

	driver.stats.Visited++

	for _, rule := range driver.rules {
		replacement, applied, err := rule.TryRewrite(tree, id)
		if err != nil {
			return nil, fmt.Errorf("rule %q at node %d: %w", rule.Name(), id, err)
		}

		if !applied {
			continue
		}

		driver.stats.Fired[rule.Name()]++
		driver.logger.DebugContext(ctx, "rule applied",
			slog.String("rule", rule.Name()),
			slog.Int("node", int(id)),
			slog.Int("outputs", len(replacement)))

		return driver.applyAll(ctx, tree, replacement, depth+1)
	}

	return driver.copyNode(ctx, tree, id, depth)
}

func (driver *Driver) copyNode(ctx context.Context, tree *ast.Ast, id ast.ID, depth int) ([]ast.ID, error) {
	node, ok := tree.GetNode(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ast.ErrNodeNotFound, id)
	}

	// The arena grows during recursion, so node must not be used after the
	// first recursive call.
	kind, content := node.Kind, node.Content
	fieldIDs := node.FieldIDs()
	oldFields, oldChildren := node.Fields, node.Children

	var fields map[ast.FieldID][]ast.ID

	if oldFields != nil {
		fields = make(map[ast.FieldID][]ast.ID, len(oldFields))

		for _, field := range fieldIDs {
			rewritten, err := driver.applyAll(ctx, tree, oldFields[field], depth+1)
			if err != nil {
				return nil, err
			}

			fields[field] = rewritten
		}
	}

	children, err := driver.applyAll(ctx, tree, oldChildren, depth+1)
	if err != nil {
		return nil, err
	}

	_, seen := driver.placed[id]
	if id >= driver.fresh && !seen && unchanged(oldFields, fields) && slices.Equal(oldChildren, children) {
		driver.placed[id] = struct{}{}

		return []ast.ID{id}, nil
	}

	driver.stats.Copied++

	return []ast.ID{tree.CreateNode(kind, content, fields, children)}, nil
}

// applyAll rewrites every id and concatenates the results in order.
func (driver *Driver) applyAll(ctx context.Context, tree *ast.Ast, ids []ast.ID, depth int) ([]ast.ID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	out := make([]ast.ID, 0, len(ids))

	for _, id := range ids {
		rewritten, err := driver.apply(ctx, tree, id, depth)
		if err != nil {
			return nil, err
		}

		out = append(out, rewritten...)
	}

	return out, nil
}

func unchanged(before, after map[ast.FieldID][]ast.ID) bool {
	return maps.EqualFunc(before, after, func(a, b []ast.ID) bool {
		return slices.Equal(a, b)
	})
}
