package typedsource

import (
	"strconv"
	"strings"

	"github.com/specforge/testgen/pkg/ir"
)

// mapType implements the type-expression mapping table from §4.1.3:
// primitives map directly, T[] and Array<T> map to Array, T | null (or
// T | undefined) sets nullable and collapses to a single variant,
// Promise<T> unwraps to T and reports is_async, string-literal unions map to
// Enum, and a bare identifier resolves against a known interface/alias
// TypeDecl as a Ref. The second return value reports whether raw was a
// Promise<...> wrapper.
func (c *converter) mapType(raw string) (*ir.Schema, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, ":")
	s = strings.TrimSpace(s)
	if s == "" {
		return &ir.Schema{Kind: ir.SchemaAny}, false
	}

	if parts := splitTopLevelPipe(s); len(parts) > 1 {
		return c.mapUnion(parts)
	}

	return c.mapPrimary(s)
}

func (c *converter) mapUnion(parts []string) (*ir.Schema, bool) {
	nullable := false
	variants := make([]*ir.Schema, 0, len(parts))
	allLiterals := true
	literals := make([]any, 0, len(parts))

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "null" || trimmed == "undefined" {
			nullable = true
			continue
		}
		if isQuoted(trimmed) {
			literals = append(literals, unquote(trimmed))
		} else {
			allLiterals = false
		}
		schema, _ := c.mapPrimary(trimmed)
		variants = append(variants, schema)
	}

	if allLiterals && len(literals) > 0 {
		base := ir.SchemaString
		switch literals[0].(type) {
		case int64:
			base = ir.SchemaInteger
		case float64:
			base = ir.SchemaNumber
		case bool:
			base = ir.SchemaBoolean
		}
		return &ir.Schema{Kind: ir.SchemaEnum, EnumValues: literals, EnumBaseType: base, Constraints: ir.Constraints{Nullable: nullable}}, false
	}

	if len(variants) == 1 {
		clone := *variants[0]
		clone.Constraints.Nullable = clone.Constraints.Nullable || nullable
		return &clone, false
	}

	return &ir.Schema{Kind: ir.SchemaUnion, Variants: variants, Constraints: ir.Constraints{Nullable: nullable}}, false
}

func (c *converter) mapPrimary(s string) (*ir.Schema, bool) {
	if strings.HasSuffix(s, "[]") {
		inner, _ := c.mapType(strings.TrimSuffix(s, "[]"))
		return &ir.Schema{Kind: ir.SchemaArray, Items: inner}, false
	}

	if isQuoted(s) {
		val := unquote(s)
		base := ir.SchemaString
		switch val.(type) {
		case int64:
			base = ir.SchemaInteger
		case float64:
			base = ir.SchemaNumber
		case bool:
			base = ir.SchemaBoolean
		}
		return &ir.Schema{Kind: ir.SchemaEnum, EnumValues: []any{val}, EnumBaseType: base}, false
	}

	name, args := splitGeneric(s)
	switch name {
	case "string":
		return &ir.Schema{Kind: ir.SchemaString}, false
	case "number":
		return &ir.Schema{Kind: ir.SchemaNumber}, false
	case "boolean":
		return &ir.Schema{Kind: ir.SchemaBoolean}, false
	case "null", "undefined":
		return &ir.Schema{Kind: ir.SchemaNull}, false
	case "any", "unknown", "void":
		return &ir.Schema{Kind: ir.SchemaAny}, false
	case "object":
		obj := ir.NewObjectSchema()
		obj.AdditionalAllowed = true
		return obj, false
	case "Array", "ReadonlyArray":
		item := &ir.Schema{Kind: ir.SchemaAny}
		if len(args) > 0 {
			item, _ = c.mapType(args[0])
		}
		return &ir.Schema{Kind: ir.SchemaArray, Items: item}, false
	case "Record", "Map":
		obj := ir.NewObjectSchema()
		obj.AdditionalAllowed = true
		return obj, false
	case "Promise":
		inner := &ir.Schema{Kind: ir.SchemaAny}
		if len(args) > 0 {
			inner, _ = c.mapType(args[0])
		}
		return inner, true
	default:
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			obj := ir.NewObjectSchema()
			obj.AdditionalAllowed = true
			return obj, false
		}
		if td, ok := c.types[name]; ok {
			return &ir.Schema{Kind: ir.SchemaRef, RefTo: td.ID}, false
		}
		return &ir.Schema{Kind: ir.SchemaAny}, false
	}
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]
}

func unquote(s string) any {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	return s
}

// splitGeneric splits "Name<a, b>" into ("Name", ["a", "b"]); a bare name
// with no angle brackets returns (name, nil).
func splitGeneric(s string) (string, []string) {
	open := strings.Index(s, "<")
	if open < 0 || !strings.HasSuffix(s, ">") {
		return s, nil
	}
	name := strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]
	return name, splitTopLevelComma(inner)
}

// splitTopLevelPipe splits on '|' tokens not nested inside <>, [], {}, or
// quotes.
func splitTopLevelPipe(s string) []string {
	return splitTopLevelOn(s, '|')
}

func splitTopLevelComma(s string) []string {
	return splitTopLevelOn(s, ',')
}

func splitTopLevelOn(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := byte(0)
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote != 0:
			if ch == inQuote {
				inQuote = 0
			}
		case ch == '\'' || ch == '"':
			inQuote = ch
		case ch == '<' || ch == '[' || ch == '{' || ch == '(':
			depth++
		case ch == '>' || ch == ']' || ch == '}' || ch == ')':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if trimmed := strings.TrimSpace(s[start:]); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts
}
