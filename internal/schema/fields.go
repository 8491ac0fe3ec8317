package schema

import "sort"

// CombinationKeywords are inspected one level deep for extra properties.
var CombinationKeywords = []string{"allOf", "anyOf", "oneOf"}

// PatternPropertiesIgnoredKey is never compiled as a field pattern. Older
// item definitions put "additionalProperties" inside "patternProperties"
// by mistake and relied on it being skipped.
const PatternPropertiesIgnoredKey = "additionalProperties"

// TopLevelPropertyNames lists the names of the record's top-level fields:
// the keys of "properties" followed by the "properties" keys of every
// subschema listed directly under allOf, anyOf and oneOf. Combinations
// nested deeper are not inspected. Names may repeat.
func TopLevelPropertyNames(doc map[string]any) []string {
	names := propertyNames(doc)
	for _, keyword := range CombinationKeywords {
		subschemas, _ := doc[keyword].([]any)
		for _, sub := range subschemas {
			if subObj, ok := sub.(map[string]any); ok {
				names = append(names, propertyNames(subObj)...)
			}
		}
	}
	return names
}

func propertyNames(doc map[string]any) []string {
	props, _ := doc["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PatternPropertyKeys returns the "patternProperties" keys that are field
// name patterns, sorted.
func PatternPropertyKeys(doc map[string]any) []string {
	pp, _ := doc["patternProperties"].(map[string]any)
	keys := make([]string, 0, len(pp))
	for key := range pp {
		if key == PatternPropertiesIgnoredKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
