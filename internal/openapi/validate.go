package openapi

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Validator checks generated API documents against the OpenAPI 3 schema
// rules enforced by kin-openapi.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate loads raw (JSON or YAML) and validates it.
func (v *Validator) Validate(ctx context.Context, raw []byte) error {
	doc, err := Load(ctx, raw)
	if err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("validate api document: %w", err)
	}
	return nil
}

// Load parses raw into a kin-openapi document without validating it.
func Load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("load api document: %w", err)
	}
	return doc, nil
}
