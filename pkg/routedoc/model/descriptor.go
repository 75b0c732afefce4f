package model

// Location tells where a parameter is carried in a request.
type Location string

const (
	InPath  Location = "path"
	InQuery Location = "query"
)

// Parameter is a classified operation parameter.
type Parameter struct {
	Name        string
	In          Location
	Type        string
	Required    bool
	Description string
}

// Descriptor is the canonical, renderer-ready description of one route.
type Descriptor struct {
	Method      Method
	Path        string
	Handlers    []string
	Summary     string
	Description string
	Parameters  []Parameter
	Responses   *OrderedMap[string]
	Tags        []string
	Security    []string
	OperationID string

	// Documented is true when a documentation comment was merged in.
	Documented bool
	File       string
	Line       int
	Pos        int
}
