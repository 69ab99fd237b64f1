package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func mustCompile(t *testing.T, s *Schema) CheckFunc {
	t.Helper()
	chk, err := Compile(s)
	require.NoError(t, err)
	return chk
}

func TestCompile_NilSchema_AcceptsAnything(t *testing.T) {
	chk := mustCompile(t, nil)

	for _, v := range []any{nil, "x", 42, map[string]any{"a": 1}, []any{1, 2}} {
		res := chk(v)
		require.True(t, res.Valid)
		require.Empty(t, res.Errors)
	}
}

func TestCompile_MissingType_DefaultsToObject(t *testing.T) {
	chk := mustCompile(t, &Schema{Required: []string{"title"}})

	res := chk(map[string]any{"title": "x"})
	require.True(t, res.Valid)

	res = chk("not an object")
	require.False(t, res.Valid)
	require.Contains(t, res.Errors[0], "expected object")
}

func TestCompile_RequiredProperty_MissingYieldsPathedError(t *testing.T) {
	chk := mustCompile(t, &Schema{
		Type:     "object",
		Required: []string{"title"},
		Properties: map[string]*Schema{
			"title": {Type: "string"},
		},
	})

	res := chk(map[string]any{"subtitle": "x"})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "title: required property missing", res.Errors[0])
}

func TestCompile_UndeclaredKeys_PassThrough(t *testing.T) {
	chk := mustCompile(t, &Schema{
		Type:       "object",
		Properties: map[string]*Schema{"title": {Type: "string"}},
	})

	res := chk(map[string]any{"title": "x", "anything": []any{1, 2}, "extra": true})
	require.True(t, res.Valid)
}

func TestCompile_ObjectWithoutProperties_AcceptsAnyMap(t *testing.T) {
	chk := mustCompile(t, &Schema{Type: "object"})

	res := chk(map[string]any{"whatever": 1, "nested": map[string]any{"a": "b"}})
	require.True(t, res.Valid)
}

func TestCompile_StringEnum_MembershipOnly(t *testing.T) {
	// Pattern is ignored when an enum is declared.
	chk := mustCompile(t, &Schema{Type: "string", Enum: []any{"left", "right"}, Pattern: "^x"})

	require.True(t, chk("left").Valid)
	require.True(t, chk("right").Valid)

	res := chk("center")
	require.False(t, res.Valid)
	require.Contains(t, res.Errors[0], "allowed values")
}

func TestCompile_StringPattern_MatchesAsRegex(t *testing.T) {
	chk := mustCompile(t, &Schema{Type: "string", Pattern: `^[a-z]+$`})

	require.True(t, chk("hello").Valid)

	res := chk("Hello World")
	require.False(t, res.Valid)
	require.Contains(t, res.Errors[0], "does not match pattern")
}

func TestCompile_InvalidPattern_FailsAtCompileTime(t *testing.T) {
	_, err := Compile(&Schema{Type: "string", Pattern: `([`})
	require.Error(t, err)
}

func TestCompile_IntegerRejectsFractional_NumberAccepts(t *testing.T) {
	integer := mustCompile(t, &Schema{Type: "integer"})
	number := mustCompile(t, &Schema{Type: "number"})

	require.True(t, integer(3).Valid)
	require.True(t, integer(3.0).Valid)
	require.False(t, integer(3.5).Valid)

	require.True(t, number(3).Valid)
	require.True(t, number(3.5).Valid)
	require.False(t, number("3").Valid)
}

func TestCompile_Array_ValidatesElementsWithIndexedPaths(t *testing.T) {
	chk := mustCompile(t, &Schema{
		Type: "array",
		Items: &Schema{
			Type:       "object",
			Required:   []string{"label"},
			Properties: map[string]*Schema{"label": {Type: "string"}},
		},
	})

	res := chk([]any{
		map[string]any{"label": "ok"},
		map[string]any{},
	})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "1.label: required property missing", res.Errors[0])
}

func TestCompile_Array_MinMaxItems(t *testing.T) {
	chk := mustCompile(t, &Schema{Type: "array", MinItems: intPtr(1), MaxItems: intPtr(2)})

	require.False(t, chk([]any{}).Valid)
	require.True(t, chk([]any{1}).Valid)
	require.True(t, chk([]any{1, 2}).Valid)
	require.False(t, chk([]any{1, 2, 3}).Valid)
}

func TestCompile_ArrayWithoutItems_AcceptsAnyElements(t *testing.T) {
	chk := mustCompile(t, &Schema{Type: "array"})

	require.True(t, chk([]any{"a", 1, true, map[string]any{}}).Valid)
}

func TestCompile_OneOf_Union(t *testing.T) {
	chk := mustCompile(t, &Schema{OneOf: []*Schema{
		{Type: "string"},
		{Type: "number"},
	}})

	require.True(t, chk("x").Valid)
	require.True(t, chk(2).Valid)

	res := chk(true)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors[0], "does not match any allowed variant")
}

func TestCompile_SingleMemberOneOf_CollapsesToMember(t *testing.T) {
	chk := mustCompile(t, &Schema{OneOf: []*Schema{{Type: "string"}}})

	res := chk(42)
	require.False(t, res.Valid)
	// The member's own error message survives, not the union message.
	require.Contains(t, res.Errors[0], "expected string")
}

func TestCompile_NestedObject_DottedPaths(t *testing.T) {
	chk := mustCompile(t, &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"hero": {
				Type:       "object",
				Required:   []string{"image"},
				Properties: map[string]*Schema{"image": {Type: "string"}},
			},
		},
	})

	res := chk(map[string]any{"hero": map[string]any{"alt": "x"}})
	require.False(t, res.Valid)
	require.Equal(t, "hero.image: required property missing", res.Errors[0])
}

func TestCompile_UnsupportedType_Errors(t *testing.T) {
	_, err := Compile(&Schema{Type: "decimal"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decimal")
}

func TestCompile_ValidValue_EmptyErrorsSlice(t *testing.T) {
	chk := mustCompile(t, &Schema{Type: "object"})

	res := chk(map[string]any{})
	require.True(t, res.Valid)
	require.NotNil(t, res.Errors)
	require.Empty(t, res.Errors)
}
