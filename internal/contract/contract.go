// Package contract loads the OpenAPI description of the service and checks
// live responses against it.
package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

//go:embed openapi.yaml
var embeddedDocument []byte

// ErrUnknownRoute is returned for a method and path the contract does not declare.
var ErrUnknownRoute = errors.New("route not declared in contract")

type Contract struct {
	doc    *openapi3.T
	raw    []byte
	source string
}

// Load reads the contract at path, or the embedded contract when path is empty.
func Load(path string) (*Contract, error) {
	if path == "" {
		return Parse(embeddedDocument, "embedded")
	}

	data, err := os.ReadFile(path) // #nosec G304 - operator supplied contract path
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file: %w", err)
	}
	return Parse(data, path)
}

// Parse loads and validates an OpenAPI document.
func Parse(data []byte, source string) (*Contract, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract %s: %w", source, err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("contract %s validation failed: %w", source, err)
	}

	return &Contract{doc: doc, raw: data, source: source}, nil
}

// Greeting returns the documented text/plain example of GET / 200.
func (c *Contract) Greeting() (string, error) {
	route, err := c.route(http.MethodGet, "/")
	if err != nil {
		return "", err
	}

	response := route.Operation.Responses.Status(http.StatusOK)
	if response == nil || response.Value == nil {
		return "", fmt.Errorf("contract %s: GET / declares no 200 response", c.source)
	}

	media := response.Value.Content.Get("text/plain")
	if media == nil {
		return "", fmt.Errorf("contract %s: GET / 200 has no text/plain content", c.source)
	}

	greeting, ok := media.Example.(string)
	if !ok || greeting == "" {
		return "", fmt.Errorf("contract %s: GET / 200 has no string example", c.source)
	}
	return greeting, nil
}

// ValidateResponse checks status, content type and body of a response to req
// against the operation declared for req's method and path.
func (c *Contract) ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error {
	route, err := c.route(req.Method, req.URL.Path)
	if err != nil {
		return err
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request: req,
			Route:   route,
		},
		Status: status,
		Header: header,
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
		},
	}
	input.SetBodyBytes(body)

	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// Raw returns the document as loaded.
func (c *Contract) Raw() []byte {
	return c.raw
}

// Source names where the document came from.
func (c *Contract) Source() string {
	return c.source
}

func (c *Contract) route(method, path string) (*routers.Route, error) {
	pathItem := c.doc.Paths.Find(path)
	if pathItem == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownRoute, method, path)
	}

	operation := pathItem.GetOperation(method)
	if operation == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownRoute, method, path)
	}

	return &routers.Route{
		Spec:      c.doc,
		Path:      path,
		PathItem:  pathItem,
		Method:    method,
		Operation: operation,
	}, nil
}
