package contract

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Validate checks data against the OpenAPI 3 rules. External references are
// refused so a contract cannot make the server fetch remote documents.
func Validate(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("%w: load: %v", ErrInvalidContract, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContract, err)
	}
	return nil
}
