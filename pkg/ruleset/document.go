// Package ruleset loads rewrite rules from YAML documents. Each rule pairs a
// query with a list of outputs that describe the replacement declaratively:
//
//	language: python
//	rules:
//	  - name: literal
//	    query: '(assignment left: (identifier) @x right: (integer) @v)'
//	    output:
//	      - token: {kind: identifier, text: "{{ .x }} = {{ .v }} /* literal */"}
//
// Documents are checked against an embedded JSON schema before compilation.
package ruleset

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for rule documents.
var (
	ErrInvalidDocument = errors.New("invalid rule document")
	ErrUnknownCapture  = errors.New("output references unknown capture")
	ErrBadOutput       = errors.New("invalid rule output")
)

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON schema rule documents are validated against.
func Schema() []byte {
	return schemaJSON
}

// Document is a parsed rule file.
type Document struct {
	Language    string `yaml:"language,omitempty"`
	Description string `yaml:"description,omitempty"`
	Rules       []Rule `yaml:"rules"`
}

// Rule is one declarative rule. Either Output is non-empty or Delete is set.
type Rule struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Query       string   `yaml:"query"`
	Output      []Output `yaml:"output,omitempty"`
	Delete      bool     `yaml:"delete,omitempty"`
}

// Output describes one replacement id or group of ids. Exactly one of the
// members is set.
type Output struct {
	Token   *TokenOutput `yaml:"token,omitempty"`
	Node    *NodeOutput  `yaml:"node,omitempty"`
	Capture string       `yaml:"capture,omitempty"`
}

// TokenOutput creates a leaf with synthesized text. Text is a Go template
// over capture texts.
type TokenOutput struct {
	Kind string `yaml:"kind"`
	Text string `yaml:"text"`
}

// NodeOutput creates an interior node.
type NodeOutput struct {
	Fields   map[string][]Output `yaml:"fields,omitempty"`
	Kind     string              `yaml:"kind"`
	Text     string              `yaml:"text,omitempty"`
	Children []Output            `yaml:"children,omitempty"`
}

// Load reads and parses a rule file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte) (*Document, error) {
	var raw any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &doc, nil
}

func validateSchema(raw any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
}
