package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/arborist/pkg/observability"
	"github.com/Sumatoshi-tech/arborist/pkg/ruleset"
)

const testRules = `language: python
rules:
  - name: literal
    query: '(assignment left: (identifier) @x right: (integer) @v)'
    output:
      - token: {kind: identifier, text: "{{ .x }} = {{ .v }} /* literal */"}
  - name: drop-comments
    query: (comment)
    delete: true
`

func TestMain(m *testing.M) {
	color.NoColor = true

	os.Exit(m.Run())
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	return executeWith(t, observability.Init, stdin, args...)
}

func executeWith(t *testing.T, initObs initFunc, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	application := newApp(initObs)

	cmd := application.rootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := application.execute(context.Background(), cmd)

	return stdout.String(), stderr.String(), err
}

// countingInit returns an init func whose Shutdown bumps calls.
func countingInit(calls *int, shutdownErr error) initFunc {
	return func(ctx context.Context, cfg observability.Config) (observability.Providers, error) {
		providers, err := observability.Init(ctx, cfg)
		if err != nil {
			return providers, err
		}

		providers.Shutdown = func(context.Context) error {
			*calls++

			return shutdownErr
		}

		return providers, nil
	}
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "arborist "))
	assert.Contains(t, out, "commit:")
}

func TestLanguagesCmd(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "", "languages")
	require.NoError(t, err)

	for _, name := range []string{"python", "go", "javascript", "ruby", "json", "yaml"} {
		assert.Contains(t, out, name)
	}

	assert.Contains(t, strings.ToLower(out), "kinds")
}

func TestPrintCmd_Tree(t *testing.T) {
	t.Parallel()

	source := writeFile(t, "main.py", "x = 1\n")

	out, _, err := execute(t, "", "print", "--format", "tree", source)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "module"))
	assert.Contains(t, out, `left: identifier "x"`)
	assert.Contains(t, out, `right: integer "1"`)
	assert.Contains(t, out, `= "="`)

	golden(t).Assert(t, "print_tree", []byte(out))
}

func TestRunCmd_Golden(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)
	source := writeFile(t, "main.py", "x = 1\n")

	out, _, err := execute(t, "", "run", "--rules", rules, source)
	require.NoError(t, err)

	golden(t).Assert(t, "run_json", []byte(out))
}

func TestPrintCmd_YAML(t *testing.T) {
	t.Parallel()

	source := writeFile(t, "main.py", "x = 1\n")

	out, _, err := execute(t, "", "print", "--format", "yaml", source)
	require.NoError(t, err)
	assert.Contains(t, out, "module:")
	assert.Contains(t, out, "identifier: x")
}

func TestPrintCmd_UnknownLanguage(t *testing.T) {
	t.Parallel()

	source := writeFile(t, "data.zzzq", "whatever")

	_, _, err := execute(t, "", "print", source)
	require.ErrorIs(t, err, ErrNoLanguage)
}

func TestRunCmd(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)
	source := writeFile(t, "main.py", "# setup\nx = 1\n")

	out, stderr, err := execute(t, "", "run", "--rules", rules, "--stats", source)
	require.NoError(t, err)

	assert.Contains(t, out, `"x = 1 /* literal */"`)
	assert.NotContains(t, out, "comment")
	assert.Contains(t, stderr, "python: parsed")
	assert.Contains(t, stderr, "(2 lines)")
	assert.Contains(t, stderr, "literal")
	assert.Contains(t, stderr, "drop-comments")
}

func TestRunCmd_Stdin(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)

	out, _, err := execute(t, "y = 2\n", "run", "--rules", rules, "--language", "python", "--format", "tree", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `identifier "y = 2 /* literal */" *`)
}

func TestRunCmd_BinaryInput(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)
	source := writeFile(t, "main.py", "x = 1\x00\x01\n")

	_, _, err := execute(t, "", "run", "--rules", rules, source)
	require.ErrorIs(t, err, ErrBinaryInput)
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("x")))
	assert.Equal(t, 1, countLines([]byte("x\n")))
	assert.Equal(t, 3, countLines([]byte("a\nb\nc")))
}

func TestRunCmd_NoRules(t *testing.T) {
	t.Parallel()

	source := writeFile(t, "main.py", "x = 1\n")

	_, _, err := execute(t, "", "run", source)
	require.ErrorIs(t, err, ErrNoRules)
}

func TestExecute_ShutdownAfterFailedCommand(t *testing.T) {
	t.Parallel()

	var calls int

	source := writeFile(t, "main.py", "x = 1\n")

	_, _, err := executeWith(t, countingInit(&calls, nil), "", "run", source)
	require.ErrorIs(t, err, ErrNoRules)
	assert.Equal(t, 1, calls)
}

func TestExecute_ShutdownAfterSuccess(t *testing.T) {
	t.Parallel()

	var calls int

	_, _, err := executeWith(t, countingInit(&calls, nil), "", "version")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_ShutdownErrorJoined(t *testing.T) {
	t.Parallel()

	var calls int

	errFlush := errors.New("flush failed")
	source := writeFile(t, "main.py", "x = 1\n")

	_, _, err := executeWith(t, countingInit(&calls, errFlush), "", "run", source)
	require.ErrorIs(t, err, ErrNoRules)
	require.ErrorIs(t, err, errFlush)
	assert.Equal(t, 1, calls)
}

func TestRunCmd_BadFormat(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)
	source := writeFile(t, "main.py", "x = 1\n")

	_, _, err := execute(t, "", "run", "--rules", rules, "--format", "xml", source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestDiffCmd(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)
	source := writeFile(t, "main.py", "x = 1\n")

	out, _, err := execute(t, "", "diff", "--rules", rules, "--format", "tree", source)
	require.NoError(t, err)

	assert.Contains(t, out, `- `)
	assert.Contains(t, out, `+     identifier "x = 1 /* literal */" *`)
	assert.Contains(t, out, "  module")
}

func TestDiffCmd_NoChanges(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)
	source := writeFile(t, "main.py", "print(x)\n")

	out, _, err := execute(t, "", "diff", "--rules", rules, source)
	require.NoError(t, err)
	assert.Equal(t, "no changes\n", out)
}

func TestCheckCmd(t *testing.T) {
	t.Parallel()

	rules := writeFile(t, "rules.yaml", testRules)

	out, _, err := execute(t, "", "check", rules)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rules valid for python")
}

func TestCheckCmd_Invalid(t *testing.T) {
	t.Parallel()

	schemaBroken := writeFile(t, "broken.yaml", "rules:\n  - name: a\n")

	out, _, err := execute(t, "", "check", schemaBroken)
	require.ErrorIs(t, err, ruleset.ErrInvalidDocument)
	assert.Contains(t, out, "is invalid")

	unknownKind := writeFile(t, "kind.yaml", "language: python\nrules:\n  - name: a\n    query: (no_such_kind)\n    delete: true\n")

	_, _, err = execute(t, "", "check", unknownKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_kind")

	noLanguage := writeFile(t, "nolang.yaml", "rules:\n  - name: a\n    query: (comment)\n    delete: true\n")

	_, _, err = execute(t, "", "check", noLanguage)
	require.ErrorIs(t, err, ErrNoLanguage)
}
