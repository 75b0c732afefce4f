package extract

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSyntax is wrapped by ParseError when no grammar accepted the file.
var ErrSyntax = errors.New("syntax error")

// ParseError reports a file that could not be parsed. It is a warning, not a
// fatal condition: the file contributes no facts.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// File is a parsed source file. Call Close when done with it.
type File struct {
	Name    string
	Source  []byte
	Grammar string

	tree *sitter.Tree
	root *sitter.Node
}

// Parse builds a syntax tree for src. name is used for grammar selection and
// is recorded on every fact extracted from the file. A *ParseError is
// returned when the source is not syntactically valid; context errors are
// returned as is.
func Parse(ctx context.Context, name string, src []byte) (*File, error) {
	firstErrLine := 0
	for _, g := range grammarsFor(name) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tree, err := parseWith(ctx, g, src)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &ParseError{File: name, Err: err}
		}

		root := tree.RootNode()
		if !root.HasError() {
			return &File{Name: name, Source: src, Grammar: g.name, tree: tree, root: root}, nil
		}
		if firstErrLine == 0 {
			firstErrLine = errorLine(root)
		}
		tree.Close()
	}
	return nil, &ParseError{File: name, Line: firstErrLine, Err: ErrSyntax}
}

func parseWith(ctx context.Context, g grammar, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.lang)
	return parser.ParseCtx(ctx, nil, src)
}

// Close releases the syntax tree.
func (f *File) Close() {
	if f == nil || f.tree == nil {
		return
	}
	f.tree.Close()
	f.tree = nil
	f.root = nil
}

// walk visits n and its named descendants in pre-order, which is source
// order for start offsets.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		walk(n.NamedChild(i), visit)
	}
}

func errorLine(root *sitter.Node) int {
	line := 0
	var find func(*sitter.Node) bool
	find = func(n *sitter.Node) bool {
		if n == nil || !n.HasError() {
			return false
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			line = int(n.StartPoint().Row) + 1
			return true
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			if find(n.Child(i)) {
				return true
			}
		}
		return false
	}
	find(root)
	return line
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}
