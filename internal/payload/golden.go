// Package payload builds golden-record payloads and applies the per-intent
// mutations that turn them into negative test cases.
package payload

import (
	"strings"

	"github.com/specforge/testgen/pkg/ir"
)

// Golden builds the canonical valid value for a schema. Identical schema
// always yields a byte-identical result: no randomness, no clock reads.
func Golden(schema *ir.Schema, fieldName string) any {
	if schema == nil {
		return nil
	}

	switch schema.Kind {
	case ir.SchemaString:
		return placeholderString(fieldName, minLen(schema))
	case ir.SchemaInteger:
		if schema.Constraints.Min != nil {
			return int64(*schema.Constraints.Min)
		}
		return int64(1)
	case ir.SchemaNumber:
		if schema.Constraints.Min != nil {
			return *schema.Constraints.Min
		}
		return float64(1)
	case ir.SchemaBoolean:
		return true
	case ir.SchemaNull, ir.SchemaAny:
		return nil
	case ir.SchemaEnum:
		if len(schema.EnumValues) > 0 {
			return schema.EnumValues[0]
		}
		return nil
	case ir.SchemaArray:
		count := 1
		if schema.Constraints.MinItems != nil && *schema.Constraints.MinItems > count {
			count = *schema.Constraints.MinItems
		}
		item := Golden(schema.Items, fieldName)
		arr := make([]any, count)
		for i := range arr {
			arr[i] = item
		}
		return arr
	case ir.SchemaObject:
		obj := make(map[string]any, schema.Properties.Len())
		schema.Properties.Range(func(name string, prop *ir.Schema) {
			if schema.Required.Contains(name) || neededByDependentRequired(schema, name) {
				obj[name] = Golden(prop, name)
			}
		})
		return obj
	case ir.SchemaUnion:
		if len(schema.Variants) > 0 {
			return Golden(schema.Variants[0], fieldName)
		}
		return nil
	case ir.SchemaRef:
		return nil
	default:
		return nil
	}
}

func minLen(schema *ir.Schema) int {
	if schema.Constraints.MinLen != nil && *schema.Constraints.MinLen > 1 {
		return *schema.Constraints.MinLen
	}
	return 1
}

func neededByDependentRequired(schema *ir.Schema, name string) bool {
	for _, deps := range schema.Constraints.DependentRequired {
		for _, d := range deps {
			if d == name {
				return true
			}
		}
	}
	return false
}

// placeholderString returns the sentinel form a string golden value takes
// before the LLM enhancer (optionally) enriches it.
func placeholderString(fieldName string, length int) string {
	name := fieldName
	if name == "" {
		name = "value"
	}
	token := "__PLACEHOLDER_STRING_" + sanitize(name) + "__"
	if len(token) >= length {
		return token
	}
	return token + strings.Repeat("x", length-len(token))
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsPlaceholder reports whether a string value is a golden-record placeholder
// token, including one padded with trailing 'x' characters to reach min_len.
// The LLM enhancer's validator uses it to detect un-enriched leaves.
func IsPlaceholder(s string) bool {
	rest, ok := strings.CutPrefix(s, "__PLACEHOLDER_STRING_")
	if !ok {
		return false
	}
	i := strings.LastIndex(rest, "__")
	return i >= 0 && strings.Trim(rest[i+2:], "x") == ""
}
