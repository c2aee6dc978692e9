package dynamicsource

import (
	"strconv"
	"strings"

	"github.com/specforge/testgen/pkg/ir"
)

// mapAnnotation implements the exhaustive type-annotation mapping table from
// §4.1.2: str/int/float/bool/None map to primitives; List/Dict/Optional/
// Union/Literal map to their structural equivalents; a bare identifier
// resolves against a known enum/model TypeDecl as a Ref; anything else falls
// back to Any.
func (c *converter) mapAnnotation(raw string) *ir.Schema {
	s := strings.TrimSpace(raw)
	if s == "" {
		return &ir.Schema{Kind: ir.SchemaAny}
	}

	name, args := splitNameArgs(s)
	switch name {
	case "str":
		return &ir.Schema{Kind: ir.SchemaString}
	case "int":
		return &ir.Schema{Kind: ir.SchemaInteger}
	case "float":
		return &ir.Schema{Kind: ir.SchemaNumber}
	case "bool":
		return &ir.Schema{Kind: ir.SchemaBoolean}
	case "None", "NoneType":
		return &ir.Schema{Kind: ir.SchemaNull}
	case "Any", "object":
		return &ir.Schema{Kind: ir.SchemaAny}
	case "List", "list", "Sequence", "Tuple", "tuple":
		item := &ir.Schema{Kind: ir.SchemaAny}
		if len(args) > 0 {
			item = c.mapAnnotation(args[0])
		}
		return &ir.Schema{Kind: ir.SchemaArray, Items: item}
	case "Dict", "dict", "Mapping":
		obj := ir.NewObjectSchema()
		obj.AdditionalAllowed = true
		return obj
	case "Optional":
		inner := &ir.Schema{Kind: ir.SchemaAny}
		if len(args) > 0 {
			inner = c.mapAnnotation(args[0])
		}
		clone := *inner
		clone.Constraints.Nullable = true
		return &clone
	case "Union":
		variants := make([]*ir.Schema, 0, len(args))
		hasNone := false
		for _, a := range args {
			mapped := c.mapAnnotation(a)
			if mapped.Kind == ir.SchemaNull {
				hasNone = true
				continue
			}
			variants = append(variants, mapped)
		}
		if len(variants) == 1 {
			single := *variants[0]
			single.Constraints.Nullable = single.Constraints.Nullable || hasNone
			return &single
		}
		return &ir.Schema{Kind: ir.SchemaUnion, Variants: variants, Constraints: ir.Constraints{Nullable: hasNone}}
	case "Literal":
		values := make([]any, 0, len(args))
		for _, a := range args {
			values = append(values, parseLiteralValue(a))
		}
		base := ir.SchemaString
		if len(values) > 0 {
			switch values[0].(type) {
			case int64:
				base = ir.SchemaInteger
			case float64:
				base = ir.SchemaNumber
			case bool:
				base = ir.SchemaBoolean
			}
		}
		return &ir.Schema{Kind: ir.SchemaEnum, EnumValues: values, EnumBaseType: base}
	default:
		if td, ok := c.types[lastDotted(name)]; ok {
			return &ir.Schema{Kind: ir.SchemaRef, RefTo: td.ID}
		}
		// Unknown annotation: fall back to Any. A real compiler would surface
		// a diagnostic here; the IR has no side channel for one.
		return &ir.Schema{Kind: ir.SchemaAny}
	}
}

func lastDotted(s string) string {
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// splitNameArgs splits "Name[a, b]" into ("Name", ["a", "b"]); a bare name
// with no brackets returns (name, nil).
func splitNameArgs(s string) (string, []string) {
	open := strings.Index(s, "[")
	if open < 0 || !strings.HasSuffix(s, "]") {
		return s, nil
	}
	name := strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]
	return name, splitTopLevel(inner)
}

// splitTopLevel splits on commas that are not nested inside brackets or
// string literals.
func splitTopLevel(s string) []string {
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
		case ch == '[' || ch == '(':
			depth++
		case ch == ']' || ch == ')':
			depth--
		case ch == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if trimmed := strings.TrimSpace(s[start:]); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts
}

// parseLiteralValue converts a Python literal token's source text into a Go
// value: quoted strings, True/False, None, or a numeric literal.
func parseLiteralValue(s string) any {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	switch s {
	case "True":
		return true
	case "False":
		return false
	case "None":
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
