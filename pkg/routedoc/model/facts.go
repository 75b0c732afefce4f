package model

// RouteFact is a route registration recovered from a call expression.
type RouteFact struct {
	Method   Method
	Path     string
	Handlers []string
	// Pos is the byte offset of the call expression within its file.
	Pos  int
	Line int
	File string
}

// Param is a documented parameter before its location is classified.
type Param struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// DocFact is the content of a block comment carrying an @route tag.
type DocFact struct {
	Summary         string
	Description     string
	ExplicitPath    string
	HasExplicitPath bool
	Params          []Param
	// Responses maps three digit status codes to descriptions.
	Responses *OrderedMap[string]
	Tags      []string
	Security  []string
	// EndPos is the byte offset just past the closing "*/".
	EndPos int
}

// AddTag appends tag unless it is already present.
func (d *DocFact) AddTag(tag string) {
	for _, existing := range d.Tags {
		if existing == tag {
			return
		}
	}
	d.Tags = append(d.Tags, tag)
}

// SetResponse records a response description; later declarations of the same
// code win.
func (d *DocFact) SetResponse(code, description string) {
	if d.Responses == nil {
		d.Responses = NewOrderedMap[string]()
	}
	d.Responses.Set(code, description)
}
