// Package normalize turns merged route and documentation facts into
// canonical descriptors.
package normalize

import (
	"regexp"
	"strings"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

var placeholderPattern = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

// DefaultResponses returns the responses used when a route documents none.
func DefaultResponses() *model.OrderedMap[string] {
	responses := model.NewOrderedMap[string]()
	responses.Set("200", "Successful response")
	responses.Set("400", "Bad request")
	responses.Set("500", "Internal server error")
	return responses
}

// Descriptor builds the descriptor for route using doc when one was merged.
// The result does not share slices or maps with its inputs.
func Descriptor(route model.RouteFact, doc *model.DocFact) model.Descriptor {
	path := route.Path
	if doc != nil && doc.HasExplicitPath && doc.ExplicitPath != "" {
		path = doc.ExplicitPath
	}
	if path == "" {
		path = "/"
	}

	desc := model.Descriptor{
		Method:     route.Method,
		Path:       path,
		Handlers:   append([]string{}, route.Handlers...),
		Summary:    string(route.Method) + " " + path,
		Parameters: []model.Parameter{},
		Tags:       []string{},
		Security:   []string{},
		File:       route.File,
		Line:       route.Line,
		Pos:        route.Pos,
	}

	var documented []model.Param
	responses := model.NewOrderedMap[string]()
	if doc != nil {
		desc.Documented = true
		if doc.Summary != "" {
			desc.Summary = doc.Summary
		}
		desc.Description = doc.Description
		desc.Tags = append(desc.Tags, doc.Tags...)
		desc.Security = append(desc.Security, doc.Security...)
		documented = doc.Params
		responses = doc.Responses.Clone()
	}
	if responses.Len() == 0 {
		responses = DefaultResponses()
	}
	desc.Responses = responses
	desc.Parameters = Parameters(path, documented)
	desc.OperationID = OperationID(route.Method, path)
	return desc
}

// Placeholders returns the names of the ":name" tokens in path, in order,
// without duplicates.
func Placeholders(path string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(path, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Parameters classifies documented params against the placeholders of path.
// A param named like a placeholder is carried in the path and is always
// required; anything else is a query param. Placeholders nobody documented
// are appended as required string path params.
func Parameters(path string, documented []model.Param) []model.Parameter {
	placeholders := Placeholders(path)
	inPath := make(map[string]bool, len(placeholders))
	for _, name := range placeholders {
		inPath[name] = false
	}

	params := make([]model.Parameter, 0, len(documented)+len(placeholders))
	for _, p := range documented {
		param := model.Parameter{
			Name:        p.Name,
			In:          model.InQuery,
			Type:        p.Type,
			Required:    p.Required,
			Description: p.Description,
		}
		if _, ok := inPath[p.Name]; ok {
			param.In = model.InPath
			param.Required = true
			inPath[p.Name] = true
		}
		params = append(params, param)
	}

	for _, name := range placeholders {
		if inPath[name] {
			continue
		}
		params = append(params, model.Parameter{
			Name:     name,
			In:       model.InPath,
			Type:     "string",
			Required: true,
		})
	}
	return params
}

// TemplatePath rewrites ":name" placeholders as "{name}".
func TemplatePath(path string) string {
	return placeholderPattern.ReplaceAllString(path, "{$1}")
}

func trimUnderscores(s string) string {
	return strings.Trim(s, "_")
}
