package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_AllParameters_FixedOrder(t *testing.T) {
	path := &Parameter{Name: "id", Location: LocationPath}
	query := &Parameter{Name: "filter", Location: LocationQuery}
	header := &Parameter{Name: "X-Trace", Location: LocationHeader}
	body := &Parameter{Name: "body", Location: LocationBody}

	op := &Operation{
		PathParams:  []*Parameter{path},
		QueryParams: []*Parameter{query},
		Headers:     []*Parameter{header},
		Body:        body,
	}

	got := op.AllParameters()
	require.Len(t, got, 4)
	assert.Same(t, path, got[0])
	assert.Same(t, query, got[1])
	assert.Same(t, header, got[2])
	assert.Same(t, body, got[3])
}

func TestOperation_AllParameters_NoBody(t *testing.T) {
	op := &Operation{
		PathParams: []*Parameter{{Name: "id"}},
	}

	got := op.AllParameters()
	assert.Len(t, got, 1)
}

func TestSpecification_ResolveRef(t *testing.T) {
	widget := &TypeDecl{ID: "Widget", Kind: TypeDeclObject, Name: "Widget"}
	spec := &Specification{TypeDecls: []*TypeDecl{widget}}

	td, ok := spec.ResolveRef("Widget")
	require.True(t, ok)
	assert.Same(t, widget, td)

	_, ok = spec.ResolveRef("Missing")
	assert.False(t, ok)
}

func TestSpecification_ResolveRef_LazyIndexIsStable(t *testing.T) {
	spec := &Specification{TypeDecls: []*TypeDecl{
		{ID: "A"}, {ID: "B"},
	}}

	_, _ = spec.ResolveRef("A")
	td, ok := spec.ResolveRef("B")
	require.True(t, ok)
	assert.Equal(t, "B", td.ID)
}

func TestSpecification_OperationByID(t *testing.T) {
	op1 := &Operation{ID: "createWidget"}
	op2 := &Operation{ID: "deleteWidget"}
	spec := &Specification{Operations: []*Operation{op1, op2}}

	got, ok := spec.OperationByID("deleteWidget")
	require.True(t, ok)
	assert.Same(t, op2, got)

	_, ok = spec.OperationByID("missing")
	assert.False(t, ok)
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Path: "spec.yaml#/paths/foo", Kind: ErrUnresolvedReference, Detail: "no such schema"}
	assert.Equal(t, "spec.yaml#/paths/foo: unresolved_reference: no such schema", err.Error())
}
