package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"schema_spider/internal/item"
)

// StatErrorsPrefix prefixes the per-path validation error counters.
const StatErrorsPrefix = "jsonschema/errors/"

var reRequired = regexp.MustCompile(`'(.+?)' is a required property`)

// ValidateStage drops items that do not satisfy their type's schema and
// counts one "jsonschema/errors/<path>" per violation.
type ValidateStage struct {
	stats Stats
}

func NewValidateStage(stats Stats) *ValidateStage {
	return &ValidateStage{stats: stats}
}

func (s *ValidateStage) ProcessItem(_ context.Context, v any) (any, error) {
	it, ok := v.(*item.Item)
	if !ok {
		return v, nil
	}

	errs := it.Type().Validate(it.Map())
	if len(errs) == 0 {
		return it, nil
	}

	var report strings.Builder
	for _, e := range errs {
		path := e.Path
		if name, ok := requiredProperty(e.Message); ok {
			path = append(append([]any(nil), path...), name)
		}
		formatted := formatPath(path)
		if s.stats != nil {
			s.stats.IncValue(StatErrorsPrefix+formatted, 1)
		}
		fmt.Fprintf(&report, "%s: %s\n", formatted, e.Message)
	}
	return nil, &DropItem{Reason: "schema validation failed: \n " + report.String()}
}

// requiredProperty extracts the property named by a "required" violation.
// The engine reports those at the parent object, without the missing key
// in the path.
func requiredProperty(message string) (string, bool) {
	m := reRequired.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func formatPath(path []any) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		switch seg := seg.(type) {
		case string:
			parts[i] = seg
		case int:
			parts[i] = strconv.Itoa(seg)
		default:
			parts[i] = fmt.Sprint(seg)
		}
	}
	return strings.Join(parts, ".")
}
