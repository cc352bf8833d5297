package request

import "context"

// Definition is a typed handler definition. T is the payload type and R
// the result type (both must be JSON-serializable).
type Definition[T, R any] struct {
	// Name is the unique operation name for this handler.
	Name string

	// Handler is the function that processes the payload.
	Handler func(ctx context.Context, payload T) (R, error)
}

// NewDefinition creates a typed handler definition.
func NewDefinition[T, R any](name string, handler func(ctx context.Context, payload T) (R, error)) *Definition[T, R] {
	return &Definition[T, R]{
		Name:    name,
		Handler: handler,
	}
}
