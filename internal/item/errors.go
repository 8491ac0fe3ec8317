package item

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSchema is wrapped by the ConfigError returned for a type whose
	// effective schema is empty.
	ErrNoSchema = errors.New("must contain a schema")

	ErrFieldNotSet = errors.New("field not set")
)

// ConfigError reports an item type definition that cannot be used.
type ConfigError struct {
	Type string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %v", e.Type, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FieldError is returned when a field is neither declared by the schema
// nor matched by one of its pattern properties.
type FieldError struct {
	Type  string
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s does not support field: %s", e.Type, e.Field)
}
