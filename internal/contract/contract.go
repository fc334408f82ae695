// Package contract carries the OpenAPI description of the prediction service
// and checks payloads against it.
package contract

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var document []byte

// ErrViolation is returned when a payload does not match the contract
var ErrViolation = errors.New("contract violation")

const jsonMediaType = "application/json"

// Contract validates request and response bodies exchanged with the
// prediction service
type Contract struct {
	doc *openapi3.T
}

// Load parses and validates the embedded document
func Load(ctx context.Context) (*Contract, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("contract: load document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("contract: validate document: %w", err)
	}
	return &Contract{doc: doc}, nil
}

// Document returns the raw OpenAPI YAML
func Document() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// ValidateRequest checks a JSON request body for method and path. Path is
// the templated path as written in the document, e.g. "/area/{rad}".
func (c *Contract) ValidateRequest(method, path string, body []byte) error {
	op, err := c.operation(method, path)
	if err != nil {
		return err
	}
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	mt := op.RequestBody.Value.Content.Get(jsonMediaType)
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return nil
	}
	return visit(mt.Schema.Value, body)
}

// ValidateResponse checks a JSON response body against the schema declared
// for status, falling back to the default response
func (c *Contract) ValidateResponse(method, path string, status int, body []byte) error {
	op, err := c.operation(method, path)
	if err != nil {
		return err
	}
	if op.Responses == nil {
		return nil
	}
	ref := op.Responses.Status(status)
	if ref == nil {
		ref = op.Responses.Default()
	}
	if ref == nil || ref.Value == nil {
		return fmt.Errorf("%w: %s %s: undeclared status %d", ErrViolation, method, path, status)
	}
	mt := ref.Value.Content.Get(jsonMediaType)
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return nil
	}
	return visit(mt.Schema.Value, body)
}

func (c *Contract) operation(method, path string) (*openapi3.Operation, error) {
	item := c.doc.Paths.Value(path)
	if item == nil {
		return nil, fmt.Errorf("contract: unknown path %s", path)
	}
	op := item.GetOperation(method)
	if op == nil {
		return nil, fmt.Errorf("contract: %s not declared for %s", method, path)
	}
	return op, nil
}

func visit(schema *openapi3.Schema, body []byte) error {
	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: body is not JSON: %v", ErrViolation, err)
	}
	if err := schema.VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %v", ErrViolation, err)
	}
	return nil
}
