package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specforge/testgen/internal/intent"
)

// generatedHeader is the fixed comment marker every rendered file opens with.
const generatedHeader = "// Code generated by qtestgen. DO NOT EDIT.\n"

// sanitizeTestName makes an arbitrary description safe for use as a Go test
// name, following the teacher's go_spec_adapter convention.
func sanitizeTestName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, "'", "")
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "(", "")
	name = strings.ReplaceAll(name, ")", "")
	name = strings.ReplaceAll(name, ",", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "{", "")
	name = strings.ReplaceAll(name, "}", "")
	return name
}

// toGoFunctionName converts an operation id into an exported Go identifier.
func toGoFunctionName(id string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range id {
		switch {
		case r == '_' || r == '-' || r == '.' || r == '/':
			upperNext = true
		case upperNext:
			b.WriteString(strings.ToUpper(string(r)))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// formatGoValue renders an arbitrary JSON-like value (string/number/bool/
// nil/map/slice) as Go source, matching the teacher's formatGoValue helper.
func formatGoValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case []any:
		elems := make([]string, len(v))
		for i, e := range v {
			elems[i] = formatGoValue(e)
		}
		return fmt.Sprintf("[]any{%s}", strings.Join(elems, ", "))
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%q: %s", k, formatGoValue(v[k]))
		}
		return fmt.Sprintf("map[string]any{%s}", strings.Join(pairs, ", "))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatGoValueAsJSON returns exactly what formatGoValue returns: a Go source
// literal, not JSON text. The rendered test json.Marshals it at run time.
func formatGoValueAsJSON(val any) string {
	return formatGoValue(val)
}

// formatFixtureBody renders a fixture create-step body the same way
// formatGoValue does, except that string values named in uniqueFields (by
// dot-path) become a call expression appending a fresh suffix at
// test-execution time instead of a literal. This is what keeps rendered
// fixture setup code byte-identical across generation runs while still
// getting a unique value on every test run.
func formatFixtureBody(body any, uniqueFields []string) string {
	unique := make(map[string]bool, len(uniqueFields))
	for _, f := range uniqueFields {
		unique[f] = true
	}
	return formatFixtureValue(body, "", unique)
}

func formatFixtureValue(val any, path string, unique map[string]bool) string {
	switch v := val.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			pairs[i] = fmt.Sprintf("%q: %s", k, formatFixtureValue(v[k], childPath, unique))
		}
		return fmt.Sprintf("map[string]any{%s}", strings.Join(pairs, ", "))
	case string:
		if unique[path] {
			return fmt.Sprintf("%s + \"-\" + uniqueSuffix()", formatGoValue(v))
		}
		return formatGoValue(v)
	default:
		return formatGoValue(v)
	}
}

// assertsFailure reports whether an intent id is a negative-path case for
// which the test expects the framework's exception-expectation idiom.
func assertsFailure(id intent.ID) bool {
	return id != intent.HappyPath
}
