// Package parser defines the shared dialect contract the three concrete
// parsers (httpcontract, dynamicsource, typedsource) implement.
package parser

import (
	"context"

	"github.com/specforge/testgen/pkg/ir"
)

// Dialect is implemented by each of the three source parsers.
type Dialect interface {
	// Parse consumes source text and returns an immutable Specification.
	// It never mutates the input and never performs I/O beyond reading src.
	Parse(ctx context.Context, src []byte) (*ir.Specification, error)
}
