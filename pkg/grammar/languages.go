package grammar

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unsafe"

	forest "github.com/alexaandru/go-sitter-forest"
	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/json"
	"github.com/alexaandru/go-sitter-forest/python"
	"github.com/alexaandru/go-sitter-forest/ruby"
	"github.com/alexaandru/go-sitter-forest/yaml"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/arborist/pkg/suggest"
)

// ErrUnknownLanguage is returned when no grammar is available for a name.
var ErrUnknownLanguage = errors.New("unknown language")

// builtin lists the grammars linked directly. Other names are resolved through
// the forest registry on demand.
var builtin = map[string]func() unsafe.Pointer{
	"go":         golang.GetLanguage,
	"javascript": javascript.GetLanguage,
	"json":       json.GetLanguage,
	"python":     python.GetLanguage,
	"ruby":       ruby.GetLanguage,
	"yaml":       yaml.GetLanguage,
}

var languageCache sync.Map

// Names returns the names of the directly linked grammars, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(builtin))
}

// Lookup returns the tree-sitter language registered under name.
func Lookup(name string) (*sitter.Language, error) {
	if cached, ok := languageCache.Load(name); ok {
		if lang, castOK := cached.(*sitter.Language); castOK {
			return lang, nil
		}
	}

	var lang *sitter.Language

	if fn, ok := builtin[name]; ok {
		lang = sitter.NewLanguage(fn())
	} else {
		lang = fromForest(name)
	}

	if lang == nil {
		return nil, fmt.Errorf("%w: %q%s", ErrUnknownLanguage, name, suggest.Hint(name, Names()))
	}

	languageCache.Store(name, lang)

	return lang, nil
}

// fromForest asks the forest registry, which panics on some unknown names.
func fromForest(name string) (lang *sitter.Language) {
	defer func() {
		if recover() != nil {
			lang = nil
		}
	}()

	return forest.GetLanguage(name)
}

// Detect guesses the grammar name for a file from its name and content.
func Detect(filename string, content []byte) (string, error) {
	detected := enry.GetLanguage(filepath.Base(filename), content)
	if detected == "" {
		return "", fmt.Errorf("%w: cannot detect language of %s", ErrUnknownLanguage, filename)
	}

	name := normalize(detected)

	if _, err := Lookup(name); err != nil {
		return "", fmt.Errorf("%w: %s detected as %s", ErrUnknownLanguage, filename, detected)
	}

	return name, nil
}

// normalize maps a linguist language name to a grammar name, e.g. "C#" to "c_sharp".
func normalize(linguist string) string {
	name := strings.ToLower(linguist)
	name = strings.ReplaceAll(name, "#", "_sharp")
	name = strings.ReplaceAll(name, "++", "pp")

	return strings.ReplaceAll(name, " ", "_")
}
