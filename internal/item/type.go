package item

import (
	"fmt"
	"log"

	"schema_spider/internal/schema"
)

// Definition describes an item type before it is bound to its schema.
type Definition struct {
	Name string
	// Schema is the type's own schema. With MergeSchema it may be nil, in
	// which case the type is composed from its parents only.
	Schema map[string]any
	// Parents are consulted left to right.
	Parents []*Type
	// MergeSchema folds the parents' schemas into Schema. When nil the
	// setting of the first parent applies, and false without parents.
	MergeSchema *bool
}

// MergeFlag returns v as a Definition.MergeSchema setting.
func MergeFlag(v bool) *bool {
	return &v
}

func (def Definition) mergeSchema() bool {
	if def.MergeSchema != nil {
		return *def.MergeSchema
	}
	for _, parent := range def.Parents {
		if parent != nil {
			return parent.MergeSchema()
		}
	}
	return false
}

// Type is an item type bound to a validated schema.
type Type struct {
	name        string
	schema      map[string]any
	validator   *schema.Validator
	fields      []string
	fieldSet    map[string]struct{}
	patterns    []*schema.Pattern
	mergeSchema bool
}

// Define binds def to its effective schema. It fails with a *ConfigError
// when the schema is empty or a pattern does not compile, and with a
// *schema.SchemaError when the schema is not valid for its draft.
func Define(def Definition) (*Type, error) {
	effective := def.Schema
	mergeSchema := def.mergeSchema()
	if mergeSchema {
		if effective == nil {
			effective = map[string]any{"properties": map[string]any{}}
		}
		for _, parent := range def.Parents {
			if parent == nil || len(parent.schema) == 0 {
				continue
			}
			effective = schema.MergeDocuments(effective, parent.schema)
		}
	}
	if len(effective) == 0 {
		return nil, &ConfigError{Type: def.Name, Err: ErrNoSchema}
	}
	effective = schema.Clone(effective).(map[string]any)

	validator := schema.Resolve(effective)
	if err := validator.CheckSchema(); err != nil {
		return nil, err
	}

	t := &Type{
		name:        def.Name,
		schema:      effective,
		validator:   validator,
		fieldSet:    make(map[string]struct{}),
		mergeSchema: mergeSchema,
	}
	for _, parent := range def.Parents {
		if parent == nil {
			continue
		}
		for _, name := range parent.fields {
			t.addField(name)
		}
	}
	for _, name := range schema.TopLevelPropertyNames(effective) {
		t.addField(name)
	}

	for _, expr := range schema.PatternPropertyKeys(effective) {
		p, err := schema.CompilePattern(expr)
		if err != nil {
			return nil, &ConfigError{Type: def.Name, Err: fmt.Errorf("pattern property %q: %w", expr, err)}
		}
		t.patterns = append(t.patterns, p)
	}

	log.Printf("item type %s defined: %s, %d fields, %d field patterns",
		t.name, validator.Draft(), len(t.fields), len(t.patterns))
	return t, nil
}

// MustDefine is Define that panics on error, for types declared in
// package variables.
func MustDefine(def Definition) *Type {
	t, err := Define(def)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Type) addField(name string) {
	if _, ok := t.fieldSet[name]; ok {
		return
	}
	t.fieldSet[name] = struct{}{}
	t.fields = append(t.fields, name)
}

func (t *Type) Name() string {
	return t.name
}

// Schema returns the effective schema. It must not be modified.
func (t *Type) Schema() map[string]any {
	return t.schema
}

func (t *Type) Validator() *schema.Validator {
	return t.validator
}

func (t *Type) MergeSchema() bool {
	return t.mergeSchema
}

// Fields lists the declared fields in definition order.
func (t *Type) Fields() []string {
	return append([]string(nil), t.fields...)
}

func (t *Type) HasField(name string) bool {
	_, ok := t.fieldSet[name]
	return ok
}

// Patterns returns the "patternProperties" keys used for field admission.
func (t *Type) Patterns() []string {
	out := make([]string, len(t.patterns))
	for i, p := range t.patterns {
		out[i] = p.String()
	}
	return out
}

// MatchesPattern reports whether name is admitted by a pattern property.
func (t *Type) MatchesPattern(name string) bool {
	for _, p := range t.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// Validate returns every schema violation in values.
func (t *Type) Validate(values map[string]any) []schema.ValidationError {
	return t.validator.IterErrors(values)
}

func (t *Type) String() string {
	return t.name
}
