package llmenhance

import (
	"math"

	"github.com/tidwall/gjson"

	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/pkg/ir"
)

// Validate checks a provider's raw JSON response against the schema and the
// original (placeholder-bearing) value, per §4.9: same key set at every
// nesting level, same primitive type for every leaf, enum values within the
// declared enum, and no placeholder token surviving. It walks the candidate
// with gjson rather than unmarshaling into a concrete struct, since the
// shape varies per schema.
func Validate(schema *ir.Schema, original any, candidateJSON string) (any, bool) {
	cand := gjson.Parse(candidateJSON)
	if !cand.Exists() {
		return nil, false
	}
	if !validateValue(schema, original, cand) {
		return nil, false
	}
	return cand.Value(), true
}

func validateValue(schema *ir.Schema, orig any, cand gjson.Result) bool {
	if schema == nil {
		return true
	}

	switch schema.Kind {
	case ir.SchemaObject:
		origMap, ok := orig.(map[string]any)
		if !ok {
			return cand.IsObject()
		}
		if !cand.IsObject() {
			return false
		}
		candMap := cand.Map()
		if len(candMap) != len(origMap) {
			return false
		}
		valid := true
		for key, origVal := range origMap {
			candVal, ok := candMap[key]
			if !ok {
				return false
			}
			var propSchema *ir.Schema
			if schema.Properties != nil {
				propSchema, _ = schema.Properties.Get(key)
			}
			if !validateValue(propSchema, origVal, candVal) {
				valid = false
				break
			}
		}
		return valid

	case ir.SchemaArray:
		origArr, ok := orig.([]any)
		if !ok {
			return cand.IsArray()
		}
		if !cand.IsArray() {
			return false
		}
		candArr := cand.Array()
		if len(candArr) != len(origArr) {
			return false
		}
		for i := range origArr {
			if !validateValue(schema.Items, origArr[i], candArr[i]) {
				return false
			}
		}
		return true

	case ir.SchemaString:
		if cand.Type != gjson.String {
			return false
		}
		if payload.IsPlaceholder(cand.String()) {
			return false
		}
		return true

	case ir.SchemaInteger:
		if cand.Type != gjson.Number {
			return false
		}
		return cand.Num == math.Trunc(cand.Num)

	case ir.SchemaNumber:
		return cand.Type == gjson.Number

	case ir.SchemaBoolean:
		return cand.Type == gjson.True || cand.Type == gjson.False

	case ir.SchemaNull:
		return cand.Type == gjson.Null

	case ir.SchemaEnum:
		val := cand.Value()
		for _, allowed := range schema.EnumValues {
			if enumEqual(allowed, val) {
				return true
			}
		}
		return false

	case ir.SchemaUnion:
		for _, variant := range schema.Variants {
			if validateValue(variant, orig, cand) {
				return true
			}
		}
		return false

	case ir.SchemaRef, ir.SchemaAny:
		if cand.Type == gjson.String {
			return !payload.IsPlaceholder(cand.String())
		}
		return true

	default:
		return true
	}
}

// enumEqual compares a schema-declared enum literal (int64/float64/string/
// bool from Go source parsing) against a JSON-decoded value (gjson always
// decodes numbers as float64).
func enumEqual(declared, candidate any) bool {
	switch d := declared.(type) {
	case int64:
		c, ok := candidate.(float64)
		return ok && float64(d) == c
	case float64:
		c, ok := candidate.(float64)
		return ok && d == c
	default:
		return declared == candidate
	}
}
