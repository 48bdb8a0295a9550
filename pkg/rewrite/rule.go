// Package rewrite applies ordered rule lists to an [ast.Ast], replacing matched
// subtrees with transform output until no rule applies anywhere in the result.
package rewrite

import (
	"fmt"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
	"github.com/Sumatoshi-tech/arborist/pkg/query"
)

// Rule is one rewrite step. TryRewrite reports whether the rule applies to
// the node and, if so, the ids that replace it. A rule that applies with an
// empty replacement deletes the node.
type Rule interface {
	Name() string
	TryRewrite(tree *ast.Ast, id ast.ID) (replacement []ast.ID, applied bool, err error)
}

// Validator is implemented by rules that can check their names against a
// grammar before the first rewrite.
type Validator interface {
	Validate(lang ast.Language) error
}

// Transform builds the replacement of a matched node from its captures.
// It may create new nodes in tree and may reuse existing ids verbatim.
type Transform func(tree *ast.Ast, caps query.Captures) ([]ast.ID, error)

// QueryRule pairs a query with the transform run on every match.
type QueryRule struct {
	query     *query.Query
	transform Transform
	name      string
}

// NewRule creates a QueryRule.
func NewRule(name string, q *query.Query, transform Transform) *QueryRule {
	return &QueryRule{
		name:      name,
		query:     q,
		transform: transform,
	}
}

// ParseRule parses src as a query and pairs it with transform.
func ParseRule(name, src string, transform Transform) (*QueryRule, error) {
	q, err := query.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}

	return NewRule(name, q, transform), nil
}

// MustParseRule is like ParseRule but panics on error.
func MustParseRule(name, src string, transform Transform) *QueryRule {
	rule, err := ParseRule(name, src, transform)
	if err != nil {
		panic(err)
	}

	return rule
}

// Name returns the rule name used in logs, stats and errors.
func (rule *QueryRule) Name() string {
	return rule.name
}

// Query returns the rule's query.
func (rule *QueryRule) Query() *query.Query {
	return rule.query
}

// Validate implements [Validator].
func (rule *QueryRule) Validate(lang ast.Language) error {
	return rule.query.Validate(lang)
}

// TryRewrite implements [Rule]. Captures are fresh for every attempt.
func (rule *QueryRule) TryRewrite(tree *ast.Ast, id ast.ID) ([]ast.ID, bool, error) {
	caps := query.Captures{}

	matched, err := rule.query.Match(tree, id, caps)
	if err != nil || !matched {
		return nil, false, err
	}

	replacement, err := rule.transform(tree, caps)
	if err != nil {
		return nil, true, err
	}

	return replacement, true, nil
}

// Keep returns the captured ids of name unchanged. Useful for rules that
// unwrap a node into one of its parts.
func Keep(name string) Transform {
	return func(_ *ast.Ast, caps query.Captures) ([]ast.ID, error) {
		return caps.Get(name), nil
	}
}

// Delete drops the matched node.
func Delete() Transform {
	return func(_ *ast.Ast, _ query.Captures) ([]ast.ID, error) {
		return nil, nil
	}
}
