package render

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
	"github.com/theroutercompany/routedoc/pkg/routedoc/normalize"
)

// OpenAPIVersion is the version string written to the "openapi" key.
const OpenAPIVersion = "3.0.3"

// Document is the API document. Struct field order is the emitted key order.
type Document struct {
	OpenAPI    string                                           `json:"openapi" yaml:"openapi"`
	Info       DocumentInfo                                     `json:"info" yaml:"info"`
	Servers    []DocumentServer                                 `json:"servers" yaml:"servers"`
	Paths      *model.OrderedMap[*model.OrderedMap[*Operation]] `json:"paths" yaml:"paths"`
	Components Components                                       `json:"components" yaml:"components"`

	skipped []string
}

// DocumentInfo is the "info" object. GeneratedAt is the generation stamp.
type DocumentInfo struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	GeneratedAt string `json:"x-generated-at,omitempty" yaml:"x-generated-at,omitempty"`
}

type DocumentServer struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Operation is one method entry under a path.
type Operation struct {
	Summary     string                               `json:"summary" yaml:"summary"`
	Description string                               `json:"description" yaml:"description"`
	OperationID string                               `json:"operationId" yaml:"operationId"`
	Tags        []string                             `json:"tags" yaml:"tags"`
	Parameters  []OperationParameter                 `json:"parameters" yaml:"parameters"`
	Responses   *model.OrderedMap[OperationResponse] `json:"responses" yaml:"responses"`
	Security    []*model.OrderedMap[[]string]        `json:"security" yaml:"security"`
}

type OperationParameter struct {
	Name        string          `json:"name" yaml:"name"`
	In          string          `json:"in" yaml:"in"`
	Required    bool            `json:"required" yaml:"required"`
	Description string          `json:"description" yaml:"description"`
	Schema      ParameterSchema `json:"schema" yaml:"schema"`
}

type ParameterSchema struct {
	Type string `json:"type" yaml:"type"`
}

type OperationResponse struct {
	Description string `json:"description" yaml:"description"`
}

// Components is always emitted with empty schema and security scheme maps.
type Components struct {
	Schemas         *model.OrderedMap[any] `json:"schemas" yaml:"schemas"`
	SecuritySchemes *model.OrderedMap[any] `json:"securitySchemes" yaml:"securitySchemes"`
}

// APIDocument builds the API document. Paths are keyed by their template
// form ("/users/{id}"). When two descriptors share method and path the first
// one is kept; the rest are reported by Skipped.
func APIDocument(descs []model.Descriptor, info Info, opts ...Option) (*Document, error) {
	if err := requireRoutes(descs); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	doc := &Document{
		OpenAPI: OpenAPIVersion,
		Info: DocumentInfo{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
			GeneratedAt: o.timestamp(),
		},
		Servers: make([]DocumentServer, 0, len(info.Servers)),
		Paths:   model.NewOrderedMap[*model.OrderedMap[*Operation]](),
		Components: Components{
			Schemas:         model.NewOrderedMap[any](),
			SecuritySchemes: model.NewOrderedMap[any](),
		},
	}
	for _, s := range info.Servers {
		doc.Servers = append(doc.Servers, DocumentServer{URL: s.URL, Description: s.Description})
	}

	for _, d := range descs {
		key := normalize.TemplatePath(d.Path)
		methods, ok := doc.Paths.Get(key)
		if !ok {
			methods = model.NewOrderedMap[*Operation]()
			doc.Paths.Set(key, methods)
		}
		if _, exists := methods.Get(d.Method.Lower()); exists {
			doc.skipped = append(doc.skipped, string(d.Method)+" "+d.Path)
			continue
		}
		methods.Set(d.Method.Lower(), operation(d))
	}
	return doc, nil
}

func operation(d model.Descriptor) *Operation {
	op := &Operation{
		Summary:     d.Summary,
		Description: d.Description,
		OperationID: d.OperationID,
		Tags:        append([]string{}, d.Tags...),
		Parameters:  make([]OperationParameter, 0, len(d.Parameters)),
		Responses:   model.NewOrderedMap[OperationResponse](),
		Security:    make([]*model.OrderedMap[[]string], 0, len(d.Security)),
	}
	for _, p := range d.Parameters {
		op.Parameters = append(op.Parameters, OperationParameter{
			Name:        p.Name,
			In:          string(p.In),
			Required:    p.Required,
			Description: p.Description,
			Schema:      ParameterSchema{Type: strings.ToLower(p.Type)},
		})
	}
	d.Responses.Range(func(code, description string) bool {
		op.Responses.Set(code, OperationResponse{Description: description})
		return true
	})
	for _, scheme := range d.Security {
		requirement := model.NewOrderedMap[[]string]()
		requirement.Set(scheme, []string{})
		op.Security = append(op.Security, requirement)
	}
	return op
}

// Skipped lists "METHOD path" entries dropped because an earlier descriptor
// already claimed the same method and path.
func (d *Document) Skipped() []string {
	return append([]string(nil), d.skipped...)
}

// EncodeJSON returns the document as indented JSON.
func (d *Document) EncodeJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeYAML returns the document as block-structured YAML.
func (d *Document) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
