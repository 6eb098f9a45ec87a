package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/manyblack/studio/pkg/schema"
)

//go:embed openapi.yaml
var rawSpec []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// checkShape validates a JSON body against a component schema of the document. It only
// catches malformed payloads; domain rules are left to the schema package.
func checkShape(doc *openapi3.T, name string, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return shapeError("body", err)
	}
	ref, ok := doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return fmt.Errorf("schema %q missing from openapi spec", name)
	}
	if err := ref.Value.VisitJSON(v); err != nil {
		return shapeError("body", err)
	}
	return nil
}

func shapeError(key string, err error) error {
	return &schema.AggregateError{Errors: []error{
		&schema.ValidationError{Key: key, Reason: err.Error(), Severity: schema.SeverityError},
	}}
}
