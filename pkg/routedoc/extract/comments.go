package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

// Docs returns the documentation facts of every block comment carrying an
// @route tag, ordered by position.
func (f *File) Docs() []model.DocFact {
	if f == nil || f.root == nil {
		return nil
	}

	var docs []model.DocFact
	walk(f.root, func(n *sitter.Node) {
		if n.Type() != "comment" {
			return
		}
		text := n.Content(f.Source)
		if !strings.HasPrefix(text, "/*") {
			return
		}
		doc, ok := ParseDocComment(text)
		if !ok {
			return
		}
		doc.EndPos = int(n.EndByte())
		docs = append(docs, doc)
	})
	return docs
}
