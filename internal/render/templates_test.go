package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specforge/testgen/internal/intent"
)

func TestSanitizeTestName_StripsUnsafeCharacters(t *testing.T) {
	got := sanitizeTestName(`GET /users/{id}: "bad" (case), 'x'`)
	assert.NotContains(t, got, " ")
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, "{")
	assert.NotContains(t, got, "}")
	assert.NotContains(t, got, "\"")
	assert.NotContains(t, got, "'")
	assert.NotContains(t, got, "(")
	assert.NotContains(t, got, ")")
}

func TestToGoFunctionName_SnakeAndKebabToPascalCase(t *testing.T) {
	assert.Equal(t, "CreateUser", toGoFunctionName("create_user"))
	assert.Equal(t, "CreateUser", toGoFunctionName("create-user"))
	assert.Equal(t, "UsersIdPosts", toGoFunctionName("users.id/posts"))
}

func TestFormatGoValue_Scalars(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want string
	}{
		{"nil", nil, "nil"},
		{"string", "hi", `"hi"`},
		{"bool", true, "true"},
		{"int", 5, "5"},
		{"int64", int64(7), "7"},
		{"whole float", float64(3), "3"},
		{"fractional float", 3.5, "3.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatGoValue(tt.val))
		})
	}
}

func TestFormatGoValue_Slice(t *testing.T) {
	got := formatGoValue([]any{"a", int64(1)})
	assert.Equal(t, `[]any{"a", 1}`, got)
}

func TestFormatGoValue_MapKeysAreSortedForDeterminism(t *testing.T) {
	got := formatGoValue(map[string]any{"z": 1, "a": 2})
	assert.Equal(t, `map[string]any{"a": 2, "z": 1}`, got)
}

func TestAssertsFailure_HappyPathIsFalseEverythingElseIsTrue(t *testing.T) {
	assert.False(t, assertsFailure(intent.HappyPath))
	assert.True(t, assertsFailure(intent.RequiredFieldMissing))
}
