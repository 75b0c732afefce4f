package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"yesNo": yesNo,
}).Parse(pageSource))

type pageData struct {
	Info        Info
	GeneratedAt string
	Groups      []pageGroup
}

type pageGroup struct {
	Name   string
	Routes []pageRoute
}

type pageRoute struct {
	Method      model.Method
	MethodClass string
	Path        string
	OperationID string
	Summary     string
	Description string
	Parameters  []model.Parameter
	Responses   []pageResponse
	Security    string
}

type pageResponse struct {
	Code        string
	Description string
}

// HTML renders a standalone page from the descriptors. It carries the same
// grouping and per-route sections as the Markdown output, with each method
// token wrapped in its colour class.
func HTML(descs []model.Descriptor, info Info, opts ...Option) ([]byte, error) {
	if err := requireRoutes(descs); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	data := pageData{
		Info:        info,
		GeneratedAt: o.timestamp(),
	}
	for _, g := range groupByTag(descs) {
		pg := pageGroup{Name: g.Name}
		for _, d := range g.Routes {
			pg.Routes = append(pg.Routes, newPageRoute(d))
		}
		data.Groups = append(data.Groups, pg)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

func newPageRoute(d model.Descriptor) pageRoute {
	route := pageRoute{
		Method:      d.Method,
		MethodClass: methodClass(d.Method),
		Path:        d.Path,
		OperationID: d.OperationID,
		Summary:     d.Summary,
		Description: d.Description,
		Parameters:  d.Parameters,
		Security:    "None",
	}
	d.Responses.Range(func(code, description string) bool {
		route.Responses = append(route.Responses, pageResponse{Code: code, Description: description})
		return true
	})
	if len(d.Security) > 0 {
		route.Security = strings.Join(d.Security, ", ")
	}
	return route
}

const pageSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{- if .GeneratedAt}}
<meta name="generated-at" content="{{.GeneratedAt}}">
{{- end}}
<title>{{.Info.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0 auto; max-width: 960px; padding: 2rem; color: #24292f; }
table { border-collapse: collapse; margin: 0.5rem 0 1rem; width: 100%; }
th, td { border: 1px solid #d0d7de; padding: 0.4rem 0.6rem; text-align: left; }
code { background: #f6f8fa; padding: 0.1rem 0.3rem; border-radius: 4px; }
hr { border: 0; border-top: 1px solid #d0d7de; margin: 1.5rem 0; }
.method { display: inline-block; min-width: 4.5rem; padding: 0.1rem 0.5rem; border-radius: 4px; color: #fff; background: #6e7781; text-align: center; font-weight: 600; }
.method.green { background: #2da44e; }
.method.blue { background: #0969da; }
.method.orange { background: #fb8500; }
.method.dark-orange { background: #bc4c00; }
.method.red { background: #cf222e; }
</style>
</head>
<body>
<h1>{{.Info.Title}}</h1>
{{- if .Info.Description}}
<p>{{.Info.Description}}</p>
{{- end}}
<p><strong>Version:</strong> {{.Info.Version}}</p>
{{- if .Info.Servers}}
<h2>Servers</h2>
<ul>
{{- range .Info.Servers}}
<li><code>{{.URL}}</code>{{if .Description}} {{.Description}}{{end}}</li>
{{- end}}
</ul>
{{- end}}
<h2>Endpoints</h2>
{{- range $group := .Groups}}
<h3>{{.Name}}</h3>
{{- range .Routes}}
<section class="route" id="{{$group.Name}}-{{.OperationID}}">
<h4><span class="{{.MethodClass}}">{{.Method}}</span> <code>{{.Path}}</code></h4>
<p><strong>Summary:</strong> {{.Summary}}</p>
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
<p><strong>Parameters:</strong></p>
{{- if .Parameters}}
<table>
<thead><tr><th>Name</th><th>Type</th><th>Required</th><th>Description</th></tr></thead>
<tbody>
{{- range .Parameters}}
<tr><td>{{.Name}}</td><td>{{.Type}}</td><td>{{yesNo .Required}}</td><td>{{.Description}}</td></tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p><em>None</em></p>
{{- end}}
<p><strong>Responses:</strong></p>
<table>
<thead><tr><th>Status</th><th>Description</th></tr></thead>
<tbody>
{{- range .Responses}}
<tr><td>{{.Code}}</td><td>{{.Description}}</td></tr>
{{- end}}
</tbody>
</table>
<p><strong>Security:</strong> {{.Security}}</p>
</section>
<hr>
{{- end}}
{{- end}}
</body>
</html>
`
