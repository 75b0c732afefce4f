package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

// Routes returns every `<object>.<verb>(<literal path>, ...)` call in the
// file, in declaration order.
func (f *File) Routes() []model.RouteFact {
	if f == nil || f.root == nil {
		return nil
	}

	var facts []model.RouteFact
	walk(f.root, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		fact, ok := routeFromCall(n, f.Source)
		if !ok {
			return
		}
		fact.File = f.Name
		facts = append(facts, fact)
	})
	return facts
}

func routeFromCall(call *sitter.Node, src []byte) (model.RouteFact, bool) {
	callee := call.ChildByFieldName("function")
	if callee == nil || callee.Type() != "member_expression" {
		return model.RouteFact{}, false
	}
	property := callee.ChildByFieldName("property")
	if property == nil || property.Type() != "property_identifier" {
		return model.RouteFact{}, false
	}
	method, ok := model.ParseMethod(property.Content(src))
	if !ok {
		return model.RouteFact{}, false
	}

	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != "arguments" {
		return model.RouteFact{}, false
	}
	list := argumentNodes(args)
	if len(list) == 0 {
		return model.RouteFact{}, false
	}
	path, ok := literalText(list[0], src)
	if !ok {
		return model.RouteFact{}, false
	}

	handlers := make([]string, 0, len(list)-1)
	for _, arg := range list[1:] {
		if arg.Type() == "identifier" {
			handlers = append(handlers, arg.Content(src))
		}
	}

	return model.RouteFact{
		Method:   method,
		Path:     path,
		Handlers: handlers,
		Pos:      int(call.StartByte()),
		Line:     lineOf(call),
	}, true
}

func argumentNodes(args *sitter.Node) []*sitter.Node {
	count := int(args.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := args.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// literalText returns the value of a quoted string or of a template literal
// without interpolation.
func literalText(n *sitter.Node, src []byte) (string, bool) {
	switch n.Type() {
	case "string":
	case "template_string":
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return "", false
			}
		}
	default:
		return "", false
	}

	raw := n.Content(src)
	if len(raw) < 2 {
		return "", false
	}
	return unescapeLiteral(raw[1 : len(raw)-1]), true
}

var literalEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\'`, `'`,
	`\"`, `"`,
	"\\`", "`",
	`\n`, "\n",
	`\t`, "\t",
	`\/`, `/`,
)

func unescapeLiteral(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return literalEscapes.Replace(s)
}
