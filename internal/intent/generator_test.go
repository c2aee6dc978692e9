package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specforge/testgen/pkg/ir"
)

func minLen(n int) *int { return &n }

func objectOp(kind ir.OperationKind, schema *ir.Schema) *ir.Operation {
	return &ir.Operation{
		Kind: kind,
		Body: &ir.Parameter{Name: "body", Schema: schema},
		Successes: []*ir.Response{{StatusCode: 200}},
		Errors:    []*ir.Response{{StatusCode: 400}, {StatusCode: 404}},
	}
}

func intentsByID(intents []*Intent, id ID) []*Intent {
	var out []*Intent
	for _, i := range intents {
		if i.ID == id {
			out = append(out, i)
		}
	}
	return out
}

func TestGenerate_AlwaysEmitsHappyPathFirst(t *testing.T) {
	op := objectOp(ir.OperationHTTP, ir.NewObjectSchema())
	intents := Generate(op, Config{})

	require.NotEmpty(t, intents)
	assert.Equal(t, HappyPath, intents[0].ID)
	assert.Equal(t, CategoryHappy, intents[0].Category)
	assert.Equal(t, 200, intents[0].ExpectedStatus)
}

func TestGenerate_RequiredFieldDialectSelection(t *testing.T) {
	schema := ir.NewObjectSchema()
	schema.Properties.Set("name", &ir.Schema{Kind: ir.SchemaString})
	schema.Required.Add("name")

	httpIntents := Generate(objectOp(ir.OperationHTTP, schema), Config{})
	assert.Len(t, intentsByID(httpIntents, RequiredFieldMissing), 1)
	assert.Empty(t, intentsByID(httpIntents, RequiredArgMissing))

	fnIntents := Generate(objectOp(ir.OperationFunction, schema), Config{})
	assert.Len(t, intentsByID(fnIntents, RequiredArgMissing), 1)
	assert.Empty(t, intentsByID(fnIntents, RequiredFieldMissing))
}

func TestGenerate_AdditionalPropertiesDialectSelection(t *testing.T) {
	schema := ir.NewObjectSchema() // AdditionalAllowed defaults to false

	httpIntents := Generate(objectOp(ir.OperationHTTP, schema), Config{})
	assert.Len(t, intentsByID(httpIntents, AdditionalPropertyBanned), 1,
		"HTTP dialect must emit ADDITIONAL_PROPERTY_NOT_ALLOWED, matching openapi_intent")
	assert.Empty(t, intentsByID(httpIntents, UnexpectedArgument))

	fnIntents := Generate(objectOp(ir.OperationFunction, schema), Config{})
	assert.Len(t, intentsByID(fnIntents, UnexpectedArgument), 1,
		"function dialects must emit UNEXPECTED_ARGUMENT, matching python_intent/typescript_intent")
	assert.Empty(t, intentsByID(fnIntents, AdditionalPropertyBanned))
}

func TestGenerate_AdditionalPropertiesSkippedWhenAllowed(t *testing.T) {
	schema := ir.NewObjectSchema()
	schema.AdditionalAllowed = true

	intents := Generate(objectOp(ir.OperationHTTP, schema), Config{})
	assert.Empty(t, intentsByID(intents, AdditionalPropertyBanned))
	assert.Empty(t, intentsByID(intents, UnexpectedArgument))
}

func TestGenerate_StringBoundaryDialectSelection(t *testing.T) {
	schema := ir.NewObjectSchema()
	schema.Properties.Set("name", &ir.Schema{
		Kind:        ir.SchemaString,
		Constraints: ir.Constraints{MinLen: minLen(3), MaxLen: minLen(30)},
	})

	httpIntents := Generate(objectOp(ir.OperationHTTP, schema), Config{})
	assert.Len(t, intentsByID(httpIntents, BoundaryMinLenMinusOne), 1)
	assert.Len(t, intentsByID(httpIntents, BoundaryMaxLenPlusOne), 1)
	assert.Empty(t, intentsByID(httpIntents, StringTooShort))
	assert.Empty(t, intentsByID(httpIntents, StringTooLong))

	fnIntents := Generate(objectOp(ir.OperationFunction, schema), Config{})
	assert.Len(t, intentsByID(fnIntents, StringTooShort), 1)
	assert.Len(t, intentsByID(fnIntents, StringTooLong), 1)
	assert.Empty(t, intentsByID(fnIntents, BoundaryMinLenMinusOne))
	assert.Empty(t, intentsByID(fnIntents, BoundaryMaxLenPlusOne))
}

func TestGenerate_NumericBoundariesShareIDsAcrossDialects(t *testing.T) {
	minV, maxV := 1.0, 100.0
	schema := ir.NewObjectSchema()
	schema.Properties.Set("count", &ir.Schema{
		Kind:        ir.SchemaInteger,
		Constraints: ir.Constraints{Min: &minV, Max: &maxV},
	})

	for _, kind := range []ir.OperationKind{ir.OperationHTTP, ir.OperationFunction} {
		intents := Generate(objectOp(kind, schema), Config{})
		assert.Len(t, intentsByID(intents, BoundaryMinMinusOne), 1, "kind=%s", kind)
		assert.Len(t, intentsByID(intents, BoundaryMaxPlusOne), 1, "kind=%s", kind)
	}
}

func TestGenerate_RequiredFieldOrderMatchesDeclarationOrder(t *testing.T) {
	schema := ir.NewObjectSchema()
	schema.Properties.Set("b", &ir.Schema{Kind: ir.SchemaString})
	schema.Properties.Set("a", &ir.Schema{Kind: ir.SchemaString})
	schema.Required.Add("b")
	schema.Required.Add("a")

	intents := Generate(objectOp(ir.OperationHTTP, schema), Config{})
	required := intentsByID(intents, RequiredFieldMissing)
	require.Len(t, required, 2)
	assert.Equal(t, "b", required[0].Field)
	assert.Equal(t, "a", required[1].Field)
}

func TestGenerate_NestedObjectWalksDepthFirst(t *testing.T) {
	inner := ir.NewObjectSchema()
	inner.Properties.Set("street", &ir.Schema{Kind: ir.SchemaString})
	inner.Required.Add("street")

	outer := ir.NewObjectSchema()
	outer.Properties.Set("address", inner)
	outer.Required.Add("address")

	intents := Generate(objectOp(ir.OperationHTTP, outer), Config{})
	required := intentsByID(intents, RequiredFieldMissing)
	require.Len(t, required, 2)
	assert.Equal(t, "address", required[0].TargetPath)
	assert.Equal(t, "address.street", required[1].TargetPath)
}

func TestGenerate_TargetIntentsAllowlistFiltersButKeepsHappyPath(t *testing.T) {
	schema := ir.NewObjectSchema()
	schema.Properties.Set("name", &ir.Schema{Kind: ir.SchemaString})
	schema.Required.Add("name")

	intents := Generate(objectOp(ir.OperationHTTP, schema), Config{TargetIntents: []ID{TypeViolation}})

	assert.Len(t, intentsByID(intents, HappyPath), 1, "HAPPY_PATH is always allowed regardless of allow-list")
	assert.Len(t, intentsByID(intents, TypeViolation), 1)
	assert.Empty(t, intentsByID(intents, RequiredFieldMissing))
}

func TestGenerate_EnumEmitsMismatch(t *testing.T) {
	schema := ir.NewObjectSchema()
	schema.Properties.Set("status", &ir.Schema{Kind: ir.SchemaEnum, EnumValues: []any{"open", "closed"}})

	intents := Generate(objectOp(ir.OperationHTTP, schema), Config{})
	assert.Len(t, intentsByID(intents, EnumMismatch), 1)
}

func TestGenerate_PathParamsOnlyForHTTP(t *testing.T) {
	op := objectOp(ir.OperationHTTP, ir.NewObjectSchema())
	op.PathParams = []*ir.Parameter{{Name: "id", Required: true}}

	httpIntents := Generate(op, Config{})
	assert.NotEmpty(t, intentsByID(httpIntents, ResourceNotFound))

	fnOp := objectOp(ir.OperationFunction, ir.NewObjectSchema())
	fnOp.PathParams = []*ir.Parameter{{Name: "id", Required: true}}
	fnIntents := Generate(fnOp, Config{})
	assert.Empty(t, intentsByID(fnIntents, ResourceNotFound), "path-param strategy is HTTP-only")
}

func TestGenerate_NoBodySkipsPropertyIntents(t *testing.T) {
	op := &ir.Operation{Kind: ir.OperationHTTP, Successes: []*ir.Response{{StatusCode: 200}}}
	intents := Generate(op, Config{})
	assert.Len(t, intents, 1, "only HAPPY_PATH when there is nothing to walk")
}
