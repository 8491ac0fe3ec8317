package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a schema document. ".yaml" and ".yml" files are decoded
// as YAML, anything else as JSON.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a schema document; numbers are kept as json.Number.
func ParseJSON(data []byte) (map[string]any, error) {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode schema: expected object, got %T", v)
	}
	return doc, nil
}

func ParseYAML(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode schema: empty document")
	}
	// yaml.v3 yields plain ints and floats; re-decode to get the JSON model
	v, err := Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return v.(map[string]any), nil
}

// Normalize converts any JSON-encodable Go value into the generic JSON
// model the engine validates: map[string]any, []any, string, bool, nil and
// json.Number.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}
