package item

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema_spider/internal/schema"
)

func productSchema() map[string]any {
	return map[string]any{
		"title": "Product",
		"type":  "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "integer"},
			"name": map[string]any{"type": "string"},
			"prices": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
		},
		"required": []any{"id", "name"},
	}
}

func mergeBase() map[string]any {
	return map[string]any{
		"properties": map[string]any{"bar": map[string]any{"type": "string"}},
		"required":   []any{"bar"},
	}
}

func mergeBase2() map[string]any {
	return map[string]any{
		"properties": map[string]any{"foo": map[string]any{"type": "string"}},
	}
}

func mergeNew() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"foo": map[string]any{"type": "string", "pattern": `^\d+$`},
			"baz": map[string]any{"type": "string"},
		},
		"required": []any{"foo"},
	}
}

func defineMerged(t *testing.T) *Type {
	t.Helper()
	base := MustDefine(Definition{Name: "Base", Schema: mergeBase()})
	base2 := MustDefine(Definition{Name: "Base2", Schema: mergeBase2()})
	merged, err := Define(Definition{
		Name:        "Merged",
		Schema:      mergeNew(),
		Parents:     []*Type{base, base2},
		MergeSchema: MergeFlag(true),
	})
	require.NoError(t, err)
	return merged
}

func TestDefine_NoSchema(t *testing.T) {
	for name, doc := range map[string]map[string]any{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			_, err := Define(Definition{Name: "TestNoSchema", Schema: doc})
			require.Error(t, err)

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "TestNoSchema", ce.Type)
			assert.True(t, errors.Is(err, ErrNoSchema))
		})
	}
}

func TestDefine_InvalidSchema(t *testing.T) {
	_, err := Define(Definition{Name: "TestItem1", Schema: map[string]any{"type": "invalid-type"}})
	require.Error(t, err)

	var se *schema.SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestDefine_ValidSchema(t *testing.T) {
	typ, err := Define(Definition{Name: "TestItem2", Schema: productSchema()})
	require.NoError(t, err)

	assert.Equal(t, "TestItem2", typ.Name())
	assert.Equal(t, schema.Draft4, typ.Validator().Draft())
	assert.ElementsMatch(t, []string{"id", "name", "prices"}, typ.Fields())
	assert.False(t, typ.MergeSchema())
}

func TestDefine_CombinationFields(t *testing.T) {
	typ, err := Define(Definition{Name: "Combined", Schema: map[string]any{
		"properties": map[string]any{"id": map[string]any{}},
		"allOf": []any{
			map[string]any{"properties": map[string]any{"a": map[string]any{}}},
		},
		"anyOf": []any{
			map[string]any{"properties": map[string]any{"b": map[string]any{}}},
			map[string]any{
				"properties": map[string]any{"id": map[string]any{}},
				"oneOf": []any{
					map[string]any{"properties": map[string]any{"nested": map[string]any{}}},
				},
			},
		},
		"oneOf": []any{
			map[string]any{"properties": map[string]any{"c": map[string]any{}}},
		},
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "a", "b", "c"}, typ.Fields())
	assert.False(t, typ.HasField("nested"))
}

func TestDefine_PatternPropertiesSkipsAdditionalProperties(t *testing.T) {
	typ, err := Define(Definition{Name: "Images", Schema: map[string]any{
		"$schema": schema.JSONSchemaDraft7,
		"patternProperties": map[string]any{
			`image_\d+`:            map[string]any{"type": "string"},
			"additionalProperties": false,
		},
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{`image_\d+`}, typ.Patterns())
	assert.Empty(t, typ.Fields())
}

func TestDefine_MergeSchema(t *testing.T) {
	merged := defineMerged(t)

	assert.True(t, merged.MergeSchema())
	assert.Equal(t, []string{"bar", "foo", "baz"}, merged.Fields())
	assert.Equal(t, []any{"foo", "bar"}, merged.Schema()["required"])

	foo := merged.Schema()["properties"].(map[string]any)["foo"].(map[string]any)
	assert.Equal(t, `^\d+$`, foo["pattern"])
}

func TestDefine_MergeSchemaDeclaredScalarWins(t *testing.T) {
	parent := MustDefine(Definition{Name: "Parent", Schema: map[string]any{"title": "parent"}})
	child, err := Define(Definition{
		Name:        "Child",
		Schema:      map[string]any{"title": "child"},
		Parents:     []*Type{parent},
		MergeSchema: MergeFlag(true),
	})
	require.NoError(t, err)

	assert.Equal(t, "child", child.Schema()["title"])
}

func TestDefine_MergeSchemaWithoutOwnSchema(t *testing.T) {
	base := MustDefine(Definition{Name: "Base", Schema: mergeBase()})

	composed, err := Define(Definition{Name: "Composed", Parents: []*Type{base}, MergeSchema: MergeFlag(true)})
	require.NoError(t, err)

	assert.Equal(t, []string{"bar"}, composed.Fields())
	assert.Equal(t, []any{"bar"}, composed.Schema()["required"])
}

func TestDefine_InheritsMergeSchemaFromFirstParent(t *testing.T) {
	merged := defineMerged(t)
	plain := MustDefine(Definition{Name: "Plain", Schema: mergeBase2()})

	child, err := Define(Definition{
		Name:    "Child",
		Schema:  map[string]any{"properties": map[string]any{"own": map[string]any{}}},
		Parents: []*Type{merged, plain},
	})
	require.NoError(t, err)

	assert.True(t, child.MergeSchema())
	assert.Equal(t, []any{"foo", "bar"}, child.Schema()["required"])
	assert.Contains(t, child.Schema()["properties"], "own")
	assert.Contains(t, child.Schema()["properties"], "foo")

	reversed, err := Define(Definition{
		Name:    "Reversed",
		Schema:  map[string]any{"properties": map[string]any{"own": map[string]any{}}},
		Parents: []*Type{plain, merged},
	})
	require.NoError(t, err)
	assert.False(t, reversed.MergeSchema())
	assert.NotContains(t, reversed.Schema(), "required")
}

func TestDefine_WithoutMergeIgnoresParentSchema(t *testing.T) {
	base := MustDefine(Definition{Name: "Base", Schema: mergeBase()})

	child, err := Define(Definition{
		Name:    "Child",
		Schema:  map[string]any{"properties": map[string]any{"own": map[string]any{}}},
		Parents: []*Type{base},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"bar", "own"}, child.Fields())
	assert.NotContains(t, child.Schema(), "required")
}

func TestDefine_DoesNotShareDeclaredSchema(t *testing.T) {
	doc := productSchema()
	typ := MustDefine(Definition{Name: "Product", Schema: doc})

	doc["properties"].(map[string]any)["extra"] = map[string]any{}

	assert.NotContains(t, typ.Schema()["properties"], "extra")
}

func TestMustDefine_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustDefine(Definition{Name: "Broken"})
	})
}
