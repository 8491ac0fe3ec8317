package item

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// Item is one scraped record of a Type.
type Item struct {
	typ    *Type
	values map[string]any
	// admitted holds field names accepted through a pattern property.
	// Admission is per item; the Type is never modified.
	admitted map[string]struct{}
}

func NewItem(t *Type) *Item {
	return &Item{
		typ:    t,
		values: make(map[string]any),
	}
}

// New creates an item and sets every entry of values, in key order.
func New(t *Type, values map[string]any) (*Item, error) {
	it := NewItem(t)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := it.Set(key, values[key]); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func (it *Item) Type() *Type {
	return it.typ
}

// IsField reports whether name is a declared or admitted field.
func (it *Item) IsField(name string) bool {
	if it.typ.HasField(name) {
		return true
	}
	_, ok := it.admitted[name]
	return ok
}

// Set stores value under field. Unknown fields matching a pattern
// property are admitted first; anything else is a *FieldError.
func (it *Item) Set(field string, value any) error {
	if !it.IsField(field) {
		if !it.typ.MatchesPattern(field) {
			return &FieldError{Type: it.typ.name, Field: field}
		}
		if it.admitted == nil {
			it.admitted = make(map[string]struct{})
		}
		it.admitted[field] = struct{}{}
	}
	it.values[field] = value
	return nil
}

// Get returns the value of field. It fails with a *FieldError for fields
// the item does not support and with ErrFieldNotSet for unset fields.
func (it *Item) Get(field string) (any, error) {
	if !it.IsField(field) {
		return nil, &FieldError{Type: it.typ.name, Field: field}
	}
	v, ok := it.values[field]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", it.typ.name, field, ErrFieldNotSet)
	}
	return v, nil
}

func (it *Item) Lookup(field string) (any, bool) {
	v, ok := it.values[field]
	return v, ok
}

func (it *Item) Delete(field string) {
	delete(it.values, field)
}

func (it *Item) Len() int {
	return len(it.values)
}

// Fields returns the declared fields followed by the admitted ones.
func (it *Item) Fields() []string {
	fields := it.typ.Fields()
	extra := make([]string, 0, len(it.admitted))
	for name := range it.admitted {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	return append(fields, extra...)
}

// Map returns a plain copy of the item's values.
func (it *Item) Map() map[string]any {
	out := make(map[string]any, len(it.values))
	for key, value := range it.values {
		out[key] = value
	}
	return out
}

// Validate checks the item against its type's schema.
func (it *Item) Validate() error {
	errs := it.typ.Validate(it.Map())
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

func (it *Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(it.values)
}

func (it *Item) String() string {
	data, err := it.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%s(%v)", it.typ.name, it.values)
	}
	return fmt.Sprintf("%s%s", it.typ.name, data)
}
