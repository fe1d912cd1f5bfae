package http

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

var loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load admin API description: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid admin API description: %w", err)
	}
	return doc, nil
})

// Spec returns the parsed and validated admin API description.
func Spec() (*openapi3.T, error) {
	return loadSpec()
}

// RawSpec returns the admin API description as YAML.
func RawSpec() []byte {
	return rawSpec
}
