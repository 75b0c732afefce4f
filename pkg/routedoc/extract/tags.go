package extract

import (
	"regexp"
	"strings"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

var (
	paramPattern    = regexp.MustCompile(`^\{([^}]*)\}\s*(\[[^\]]*\]|\S+)\s*(.*)$`)
	responsePattern = regexp.MustCompile(`^(\d{3})(?:\s+(.*))?$`)
)

// ParseDocComment reads the tags of a block comment. It reports false when
// the comment has no @route line. Unknown or malformed tag lines are skipped.
// EndPos is left for the caller to fill in.
func ParseDocComment(text string) (model.DocFact, bool) {
	lines := commentLines(text)

	recognised := false
	for _, line := range lines {
		if tag, _ := splitTag(line); tag == "@route" {
			recognised = true
			break
		}
	}
	if !recognised {
		return model.DocFact{}, false
	}

	var (
		doc           model.DocFact
		routeText     string
		description   []string
		inDescription bool
	)
	for _, line := range lines {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "@") {
			if inDescription {
				description = append(description, line)
			}
			continue
		}

		inDescription = false
		tag, rest := splitTag(line)
		switch tag {
		case "@route":
			routeText = rest
			if path, ok := routePath(rest); ok {
				doc.ExplicitPath = path
				doc.HasExplicitPath = true
			}
		case "@summary":
			doc.Summary = rest
		case "@description":
			inDescription = true
			if rest != "" {
				description = append(description, rest)
			}
		case "@param":
			if param, ok := parseParam(rest); ok {
				doc.Params = append(doc.Params, param)
			}
		case "@response":
			if m := responsePattern.FindStringSubmatch(rest); m != nil {
				doc.SetResponse(m[1], strings.TrimSpace(m[2]))
			}
		case "@tag":
			if rest != "" {
				doc.AddTag(rest)
			}
		case "@security":
			if rest != "" {
				doc.Security = append(doc.Security, rest)
			}
		}
	}

	doc.Description = strings.Join(description, " ")
	if doc.Summary == "" {
		doc.Summary = routeText
	}
	if doc.Responses == nil {
		doc.Responses = model.NewOrderedMap[string]()
	}
	return doc, true
}

// commentLines strips the comment delimiters and the leading asterisks of
// every line.
func commentLines(text string) []string {
	body := strings.TrimPrefix(text, "/*")
	body = strings.TrimSuffix(body, "*/")

	raw := strings.Split(body, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "*")
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

func splitTag(line string) (string, string) {
	if !strings.HasPrefix(line, "@") {
		return "", line
	}
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// routePath picks the path out of "@route METHOD /path". A lone argument is
// taken as the path when it looks like one.
func routePath(rest string) (string, bool) {
	fields := strings.Fields(rest)
	switch {
	case len(fields) >= 2:
		return fields[1], true
	case len(fields) == 1 && strings.HasPrefix(fields[0], "/"):
		return fields[0], true
	default:
		return "", false
	}
}

func parseParam(rest string) (model.Param, bool) {
	m := paramPattern.FindStringSubmatch(rest)
	if m == nil {
		return model.Param{}, false
	}

	typ := strings.TrimSpace(m[1])
	name := m[2]
	required := true
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		required = false
		name = strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
		if idx := strings.Index(name, "="); idx >= 0 {
			name = name[:idx]
		}
		name = strings.TrimSpace(name)
	}
	if typ == "" || name == "" {
		return model.Param{}, false
	}

	desc := strings.TrimSpace(m[3])
	desc = strings.TrimSpace(strings.TrimPrefix(desc, "- "))

	return model.Param{
		Name:        name,
		Type:        typ,
		Required:    required,
		Description: desc,
	}, true
}
