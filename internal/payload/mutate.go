package payload

import (
	"math"
	"strconv"
	"strings"

	"github.com/specforge/testgen/internal/intent"
	"github.com/specforge/testgen/pkg/ir"
)

const (
	sentinelInvalidType  = "__INVALID_TYPE__"
	sentinelInvalidEnum  = "__INVALID_ENUM_VALUE__"
	sentinelUnionNoMatch = "__UNION_NO_MATCH__"
	sentinelExtraKwarg   = "__unexpected_kwarg__"
	sentinelExtraProp    = "__extra_property__"
	fillerCharset        = "abcdefghijklmnopqrstuvwxyz"
)

// Mutate applies the single transformation the mutation catalog (§4.4)
// assigns to id, rooted at targetPath, to a deep copy of golden. It never
// mutates the caller's value.
func Mutate(golden any, targetPath string, id intent.ID, schema *ir.Schema) any {
	root := deepCopy(golden)

	switch id {
	case intent.RequiredFieldMissing, intent.RequiredArgMissing:
		removeKey(root, targetPath)
	case intent.UnexpectedArgument:
		insertAt(root, targetPath, sentinelExtraKwarg, "unexpected")
	case intent.AdditionalPropertyBanned:
		insertAt(root, targetPath, sentinelExtraProp, "unexpected")
	case intent.TypeViolation, intent.ObjectValueTypeViolation:
		setAt(root, targetPath, sentinelInvalidType)
	case intent.ArrayItemTypeViolation:
		setAt(root, targetPath+".0", sentinelInvalidType)
	case intent.NullNotAllowed:
		setAt(root, targetPath, nil)
	case intent.BoundaryMinMinusOne, intent.NumberTooSmall:
		setAt(root, targetPath, numericBoundary(schema, true))
	case intent.BoundaryMaxPlusOne, intent.NumberTooLarge:
		setAt(root, targetPath, numericBoundary(schema, false))
	case intent.BoundaryMinLenMinusOne, intent.StringTooShort:
		setAt(root, targetPath, filler(minLenMinusOne(schema)))
	case intent.BoundaryMaxLenPlusOne, intent.StringTooLong:
		setAt(root, targetPath, filler(maxLenPlusOne(schema)))
	case intent.BoundaryMinItemsMinusOne, intent.ArrayTooShort:
		setAt(root, targetPath, shrinkArray(arrayAt(root, targetPath, schema), minItemsMinusOne(schema)))
	case intent.BoundaryMaxItemsPlusOne, intent.ArrayTooLong:
		setAt(root, targetPath, growArray(arrayAt(root, targetPath, schema), maxItemsPlusOne(schema)))
	case intent.NotMultipleOf:
		setAt(root, targetPath, notMultipleOf(schema))
	case intent.FormatInvalid, intent.FormatInvalidPathParam:
		setAt(root, targetPath, invalidFormat(schema))
	case intent.PatternMismatch:
		setAt(root, targetPath, "!!!pattern-mismatch!!!")
	case intent.EnumMismatch, intent.HeaderEnumMismatch:
		setAt(root, targetPath, sentinelInvalidEnum)
	case intent.ArrayNotUnique:
		setAt(root, targetPath, duplicateFirst(arrayAt(root, targetPath, schema)))
	case intent.UnionNoMatch:
		setAt(root, targetPath, sentinelUnionNoMatch)
	case intent.EmptyString:
		setAt(root, targetPath, "")
	case intent.WhitespaceOnly:
		setAt(root, targetPath, "   ")
	case intent.SQLInjection:
		setAt(root, targetPath, "' OR '1'='1")
	case intent.XSSInjection:
		setAt(root, targetPath, "<script>alert(1)</script>")
	case intent.CommandInjection:
		setAt(root, targetPath, "; rm -rf /")
	case intent.HeaderInjection:
		setAt(root, targetPath, "value\r\nX-Injected: true")
	case intent.PathTraversal:
		setAt(root, targetPath, "../../etc/passwd")
	case intent.ResourceNotFound:
		setAt(root, targetPath, absentResourceID(schema))
	case intent.HeaderMissing:
		removeKey(root, targetPath)
	}

	return root
}

func numericBoundary(schema *ir.Schema, lower bool) any {
	if schema == nil {
		return 0
	}
	c := schema.Constraints
	if lower {
		if c.Min == nil {
			return 0
		}
		if c.ExclusiveMin {
			return *c.Min
		}
		return *c.Min - 1
	}
	if c.Max == nil {
		return 0
	}
	if c.ExclusiveMax {
		return *c.Max
	}
	return *c.Max + 1
}

func minLenMinusOne(schema *ir.Schema) int {
	if schema == nil || schema.Constraints.MinLen == nil {
		return 0
	}
	n := *schema.Constraints.MinLen - 1
	if n < 0 {
		n = 0
	}
	return n
}

func maxLenPlusOne(schema *ir.Schema) int {
	if schema == nil || schema.Constraints.MaxLen == nil {
		return 1
	}
	return *schema.Constraints.MaxLen + 1
}

func minItemsMinusOne(schema *ir.Schema) int {
	if schema == nil || schema.Constraints.MinItems == nil {
		return 0
	}
	n := *schema.Constraints.MinItems - 1
	if n < 0 {
		n = 0
	}
	return n
}

func maxItemsPlusOne(schema *ir.Schema) int {
	if schema == nil || schema.Constraints.MaxItems == nil {
		return 1
	}
	return *schema.Constraints.MaxItems + 1
}

func filler(length int) string {
	if length <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(fillerCharset[i%len(fillerCharset)])
	}
	return b.String()
}

func notMultipleOf(schema *ir.Schema) any {
	if schema == nil || schema.Constraints.MultipleOf == nil {
		return 1
	}
	m := *schema.Constraints.MultipleOf
	if m == float64(int64(m)) && m > 1 {
		// m/2+2 and m/2+3 differ by one, so at most one lies on the grid.
		for _, prime := range []float64{2, 3} {
			if v := m/2 + prime; math.Mod(v, m) != 0 {
				return v
			}
		}
	}
	return m/2 + 0.3333
}

func invalidFormat(schema *ir.Schema) string {
	if schema == nil {
		return "not-valid"
	}
	switch schema.Constraints.Format {
	case ir.FormatEmail:
		return "not-an-email"
	case ir.FormatUUID:
		return "not-a-valid-uuid"
	case ir.FormatDate:
		return "not-a-date"
	case ir.FormatDateTime:
		return "not-a-date-time"
	case ir.FormatIPv4:
		return "999.999.999.999"
	case ir.FormatIPv6:
		return "not-an-ipv6"
	case ir.FormatURI:
		return "not a uri"
	default:
		return "not-valid"
	}
}

func absentResourceID(schema *ir.Schema) any {
	if schema != nil && schema.Constraints.Format == ir.FormatUUID {
		return "00000000-0000-0000-0000-000000000000"
	}
	return "00000000-absent-resource"
}

func duplicateFirst(arr []any) []any {
	if len(arr) == 0 {
		return arr
	}
	out := make([]any, 0, len(arr)+1)
	out = append(out, arr[0])
	out = append(out, arr...)
	return out
}

func shrinkArray(arr []any, size int) []any {
	if size >= len(arr) {
		return arr
	}
	return arr[:size]
}

func growArray(arr []any, size int) []any {
	if size <= len(arr) || len(arr) == 0 {
		return arr
	}
	out := make([]any, 0, size)
	for len(out) < size {
		out = append(out, arr[len(out)%len(arr)])
	}
	return out
}

func arrayAt(root any, path string, schema *ir.Schema) []any {
	v := getAt(root, path)
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{Golden(schema, "item")}
}

// --- path navigation ---

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func parentPath(path string) string {
	parts := splitPath(path)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], ".")
}

func lastSegment(path string) string {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func getAt(root any, path string) any {
	cur := root
	for _, seg := range splitPath(path) {
		switch c := cur.(type) {
		case map[string]any:
			cur = c[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil
			}
			cur = c[idx]
		default:
			return nil
		}
	}
	return cur
}

func setAt(root any, path string, value any) {
	if path == "" {
		return
	}
	parent := getAt(root, parentPath(path))
	seg := lastSegment(path)
	switch p := parent.(type) {
	case map[string]any:
		p[seg] = value
	case []any:
		idx, err := strconv.Atoi(seg)
		if err == nil && idx >= 0 && idx < len(p) {
			p[idx] = value
		}
	}
}

func removeKey(root any, path string) {
	if path == "" {
		return
	}
	parent := getAt(root, parentPath(path))
	if m, ok := parent.(map[string]any); ok {
		delete(m, lastSegment(path))
	}
}

func insertAt(root any, path string, key string, value any) {
	target := root
	if path != "" {
		target = getAt(root, path)
	}
	if m, ok := target.(map[string]any); ok {
		m[key] = value
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}
