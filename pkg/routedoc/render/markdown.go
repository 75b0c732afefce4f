package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

// Markdown renders the human readable reference.
func Markdown(descs []model.Descriptor, info Info, opts ...Option) ([]byte, error) {
	if err := requireRoutes(descs); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", info.Title)
	if desc := strings.TrimSpace(info.Description); desc != "" {
		fmt.Fprintf(&buf, "%s\n\n", desc)
	}
	fmt.Fprintf(&buf, "**Version:** %s\n\n", info.Version)
	if ts := o.timestamp(); ts != "" {
		fmt.Fprintf(&buf, "_Generated at %s_\n\n", ts)
	}

	if len(info.Servers) > 0 {
		fmt.Fprintf(&buf, "## Servers\n\n")
		for _, s := range info.Servers {
			if s.Description != "" {
				fmt.Fprintf(&buf, "- `%s` %s\n", s.URL, s.Description)
				continue
			}
			fmt.Fprintf(&buf, "- `%s`\n", s.URL)
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "## Endpoints\n\n")
	for _, g := range groupByTag(descs) {
		fmt.Fprintf(&buf, "### %s\n\n", g.Name)
		for _, d := range g.Routes {
			writeMarkdownRoute(&buf, d)
		}
	}
	return buf.Bytes(), nil
}

func writeMarkdownRoute(buf *bytes.Buffer, d model.Descriptor) {
	fmt.Fprintf(buf, "#### %s %s\n\n", d.Method, d.Path)
	fmt.Fprintf(buf, "**Summary:** %s\n\n", oneLine(d.Summary))
	if d.Description != "" {
		fmt.Fprintf(buf, "%s\n\n", d.Description)
	}

	fmt.Fprintf(buf, "**Parameters:**\n\n")
	if len(d.Parameters) == 0 {
		fmt.Fprintf(buf, "_None_\n\n")
	} else {
		buf.WriteString("| Name | Type | Required | Description |\n")
		buf.WriteString("|------|------|----------|-------------|\n")
		for _, p := range d.Parameters {
			fmt.Fprintf(buf, "| %s | %s | %s | %s |\n", tableCell(p.Name), tableCell(p.Type), yesNo(p.Required), tableCell(p.Description))
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(buf, "**Responses:**\n\n")
	buf.WriteString("| Status | Description |\n")
	buf.WriteString("|--------|-------------|\n")
	d.Responses.Range(func(code, description string) bool {
		fmt.Fprintf(buf, "| %s | %s |\n", code, tableCell(description))
		return true
	})
	buf.WriteString("\n")

	security := "None"
	if len(d.Security) > 0 {
		security = strings.Join(d.Security, ", ")
	}
	fmt.Fprintf(buf, "**Security:** %s\n\n", security)
	buf.WriteString("---\n\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func tableCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
