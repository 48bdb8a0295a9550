package ruleset

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/Sumatoshi-tech/arborist/pkg/ast"
	"github.com/Sumatoshi-tech/arborist/pkg/query"
	"github.com/Sumatoshi-tech/arborist/pkg/rewrite"
)

// Compile turns every rule of the document into a [rewrite.Rule], checking
// queries, kinds, fields, capture references and templates against lang.
func (doc *Document) Compile(lang ast.Language) ([]rewrite.Rule, error) {
	rules := make([]rewrite.Rule, 0, len(doc.Rules))

	for idx := range doc.Rules {
		rule, err := doc.Rules[idx].compile(lang)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", idx, doc.Rules[idx].Name, err)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func (rule *Rule) compile(lang ast.Language) (rewrite.Rule, error) {
	q, err := query.Parse(rule.Query)
	if err != nil {
		return nil, err
	}

	if err = q.Validate(lang); err != nil {
		return nil, err
	}

	if rule.Delete {
		if len(rule.Output) > 0 {
			return nil, fmt.Errorf("%w: delete and output are exclusive", ErrBadOutput)
		}

		return rewrite.NewRule(rule.Name, q, rewrite.Delete()), nil
	}

	if len(rule.Output) == 0 {
		return nil, fmt.Errorf("%w: needs output or delete: true", ErrBadOutput)
	}

	comp := &compiler{lang: lang, captures: q.CaptureNames()}

	emitters, err := comp.outputs(rule.Output, rule.Name)
	if err != nil {
		return nil, err
	}

	return rewrite.NewRule(rule.Name, q, func(tree *ast.Ast, caps query.Captures) ([]ast.ID, error) {
		env := captureTexts(tree, caps)

		return emitAll(emitters, tree, caps, env)
	}), nil
}

// emitter produces replacement ids for one output entry.
type emitter interface {
	emit(tree *ast.Ast, caps query.Captures, env map[string]string) ([]ast.ID, error)
}

func emitAll(emitters []emitter, tree *ast.Ast, caps query.Captures, env map[string]string) ([]ast.ID, error) {
	var out []ast.ID

	for _, em := range emitters {
		ids, err := em.emit(tree, caps, env)
		if err != nil {
			return nil, err
		}

		out = append(out, ids...)
	}

	return out, nil
}

type captureEmitter struct {
	name string
}

func (em captureEmitter) emit(_ *ast.Ast, caps query.Captures, _ map[string]string) ([]ast.ID, error) {
	return slices.Clone(caps.Get(em.name)), nil
}

type tokenEmitter struct {
	text *template.Template
	kind string
}

func (em tokenEmitter) emit(tree *ast.Ast, _ query.Captures, env map[string]string) ([]ast.ID, error) {
	text, err := render(em.text, env)
	if err != nil {
		return nil, err
	}

	id, err := tree.CreateToken(em.kind, text)
	if err != nil {
		return nil, err
	}

	return []ast.ID{id}, nil
}

type fieldEmitter struct {
	outputs []emitter
	id      ast.FieldID
}

type nodeEmitter struct {
	text     *template.Template
	fields   []fieldEmitter
	children []emitter
	kind     ast.KindID
}

func (em nodeEmitter) emit(tree *ast.Ast, caps query.Captures, env map[string]string) ([]ast.ID, error) {
	text, err := render(em.text, env)
	if err != nil {
		return nil, err
	}

	var fields map[ast.FieldID][]ast.ID

	if len(em.fields) > 0 {
		fields = make(map[ast.FieldID][]ast.ID, len(em.fields))

		for _, field := range em.fields {
			ids, emitErr := emitAll(field.outputs, tree, caps, env)
			if emitErr != nil {
				return nil, emitErr
			}

			fields[field.id] = ids
		}
	}

	children, err := emitAll(em.children, tree, caps, env)
	if err != nil {
		return nil, err
	}

	return []ast.ID{tree.CreateNode(em.kind, ast.Str(text), fields, children)}, nil
}

type compiler struct {
	lang     ast.Language
	captures []string
}

func (comp *compiler) outputs(outputs []Output, name string) ([]emitter, error) {
	emitters := make([]emitter, 0, len(outputs))

	for idx := range outputs {
		em, err := comp.output(&outputs[idx], fmt.Sprintf("%s.%d", name, idx))
		if err != nil {
			return nil, err
		}

		emitters = append(emitters, em)
	}

	return emitters, nil
}

func (comp *compiler) output(out *Output, name string) (emitter, error) {
	switch {
	case out.Capture != "":
		if !slices.Contains(comp.captures, out.Capture) {
			return nil, fmt.Errorf("%w: @%s", ErrUnknownCapture, out.Capture)
		}

		return captureEmitter{name: out.Capture}, nil
	case out.Token != nil:
		if _, ok := comp.kind(out.Token.Kind); !ok {
			return nil, fmt.Errorf("%w: unknown token kind %q", ErrBadOutput, out.Token.Kind)
		}

		tmpl, err := comp.template(name, out.Token.Text)
		if err != nil {
			return nil, err
		}

		return tokenEmitter{kind: out.Token.Kind, text: tmpl}, nil
	case out.Node != nil:
		return comp.node(out.Node, name)
	default:
		return nil, fmt.Errorf("%w: empty output", ErrBadOutput)
	}
}

func (comp *compiler) node(out *NodeOutput, name string) (emitter, error) {
	kind, ok := comp.kind(out.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrBadOutput, out.Kind)
	}

	tmpl, err := comp.template(name, out.Text)
	if err != nil {
		return nil, err
	}

	em := nodeEmitter{kind: kind, text: tmpl}

	for _, fieldName := range slices.Sorted(maps.Keys(out.Fields)) {
		field, found := comp.lang.FieldID(fieldName)
		if !found {
			return nil, fmt.Errorf("%w: unknown field %q", ErrBadOutput, fieldName)
		}

		outputs, fieldErr := comp.outputs(out.Fields[fieldName], name+"."+fieldName)
		if fieldErr != nil {
			return nil, fieldErr
		}

		em.fields = append(em.fields, fieldEmitter{id: field, outputs: outputs})
	}

	em.children, err = comp.outputs(out.Children, name+".children")
	if err != nil {
		return nil, err
	}

	return em, nil
}

// kind resolves a kind name, preferring named kinds.
func (comp *compiler) kind(name string) (ast.KindID, bool) {
	if id, ok := comp.lang.KindID(name, true); ok {
		return id, true
	}

	return comp.lang.KindID(name, false)
}

// template parses text and checks that it only refers to declared captures.
func (comp *compiler) template(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadOutput, err)
	}

	probe := make(map[string]string, len(comp.captures))
	for _, capture := range comp.captures {
		probe[capture] = ""
	}

	if err = tmpl.Execute(&strings.Builder{}, probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownCapture, err)
	}

	return tmpl, nil
}

func render(tmpl *template.Template, env map[string]string) (string, error) {
	var sb strings.Builder

	if err := tmpl.Execute(&sb, env); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}

	return sb.String(), nil
}

// captureTexts maps each capture name to the source text of its ids, joined
// by single spaces.
func captureTexts(tree *ast.Ast, caps query.Captures) map[string]string {
	env := make(map[string]string, len(caps))

	for name, ids := range caps {
		texts := make([]string, 0, len(ids))

		for _, id := range ids {
			if text, ok := tree.Text(id); ok {
				texts = append(texts, text)
			}
		}

		env[name] = strings.Join(texts, " ")
	}

	return env
}
