package extract

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

type grammar struct {
	name string
	lang *sitter.Language
}

var (
	javascriptGrammar = grammar{name: "javascript", lang: javascript.GetLanguage()}
	typescriptGrammar = grammar{name: "typescript", lang: typescript.GetLanguage()}
	tsxGrammar        = grammar{name: "tsx", lang: tsx.GetLanguage()}
)

// grammars maps a file extension to the grammars tried in order. The first
// grammar producing an error-free tree wins, so untyped files that carry type
// annotations (or JSX in .ts files) still parse.
var grammars = map[string][]grammar{
	".js":  {javascriptGrammar, tsxGrammar},
	".mjs": {javascriptGrammar, tsxGrammar},
	".cjs": {javascriptGrammar, tsxGrammar},
	".jsx": {javascriptGrammar, tsxGrammar},
	".ts":  {typescriptGrammar, tsxGrammar},
	".mts": {typescriptGrammar, tsxGrammar},
	".cts": {typescriptGrammar, tsxGrammar},
	".tsx": {tsxGrammar},
}

// Supported reports whether files with the given name can be parsed.
func Supported(name string) bool {
	_, ok := grammars[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions lists the supported file extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(grammars))
	for ext := range grammars {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func grammarsFor(name string) []grammar {
	if gs, ok := grammars[strings.ToLower(filepath.Ext(name))]; ok {
		return gs
	}
	// Unknown extensions get the most permissive grammar.
	return []grammar{tsxGrammar}
}
