package schema

import (
	_ "embed"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// The engine has no draft-03 support. Draft-03 documents are checked
// against the draft-03 meta-schema as written, then rewritten into the
// equivalent draft-04 document for compilation.

//go:embed metaschemas/draft-03.json
var draft3MetaSchema []byte

const draft3MetaURL = "http://json-schema.org/draft-03/schema"

var (
	draft3MetaOnce sync.Once
	draft3Meta     *jsonschema.Schema
	draft3MetaErr  error
)

// checkDraft3 validates doc against the draft-03 meta-schema.
func checkDraft3(doc map[string]any) error {
	draft3MetaOnce.Do(func() {
		draft3Meta, draft3MetaErr = compileDraft3Meta()
	})
	if draft3MetaErr != nil {
		return draft3MetaErr
	}
	return draft3Meta.Validate(doc)
}

// compileDraft3Meta compiles the meta-schema through the same rewrite as
// user documents; its "$ref": "#" then points at the rewritten root.
func compileDraft3Meta() (*jsonschema.Schema, error) {
	raw, err := ParseJSON(draft3MetaSchema)
	if err != nil {
		return nil, err
	}
	meta := rewriteDraft3(withoutKey(raw, "id"))
	// uri formats on id, $schema and $ref are annotations only
	if props, ok := meta["properties"].(map[string]any); ok {
		for name, sub := range props {
			if subObj, ok := sub.(map[string]any); ok {
				props[name] = withoutKey(subObj, "format")
			}
		}
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft4)
	c.UseRegexpEngine(compileRegexp)
	if err := c.AddResource(draft3MetaURL, meta); err != nil {
		return nil, err
	}
	return c.Compile(draft3MetaURL)
}

// draft3Types are the type names draft-03 defines. Any other name is
// allowed by the meta-schema but matches no instance.
var draft3Types = map[string]bool{
	"string": true, "number": true, "integer": true, "boolean": true,
	"object": true, "array": true, "null": true, "any": true,
}

func draft3NoMatch() map[string]any {
	return map[string]any{"not": map[string]any{}}
}

var draft3FormatRenames = map[string]string{
	"ip-address": "ipv4",
	"host-name":  "hostname",
}

var (
	reHexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)
	cssColors  = map[string]struct{}{
		"aqua": {}, "black": {}, "blue": {}, "fuchsia": {}, "gray": {}, "green": {},
		"lime": {}, "maroon": {}, "navy": {}, "olive": {}, "orange": {}, "purple": {},
		"red": {}, "silver": {}, "teal": {}, "white": {}, "yellow": {},
	}
)

var draft3Formats = []*jsonschema.Format{
	{
		Name: "color",
		Validate: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			if reHexColor.MatchString(s) {
				return nil
			}
			if _, ok := cssColors[strings.ToLower(s)]; ok {
				return nil
			}
			return errors.New("not a valid css color")
		},
	},
	{
		// any number is a valid utc-millisec
		Name:     "utc-millisec",
		Validate: func(v any) error { return nil },
	},
}

func rewriteDraft3(doc map[string]any) map[string]any {
	out := rewriteDraft3Schema(doc)
	out["$schema"] = JSONSchemaDraft4
	return out
}

func rewriteDraft3Value(v any) any {
	if m, ok := v.(map[string]any); ok {
		return rewriteDraft3Schema(m)
	}
	return v
}

func rewriteDraft3Schema(sch map[string]any) map[string]any {
	out := make(map[string]any, len(sch))
	for key, value := range sch {
		out[key] = value
	}

	if props, ok := sch["properties"].(map[string]any); ok {
		newProps := make(map[string]any, len(props))
		var required []string
		for name, sub := range props {
			subObj, ok := sub.(map[string]any)
			if !ok {
				newProps[name] = sub
				continue
			}
			if req, ok := subObj["required"].(bool); ok {
				if req {
					required = append(required, name)
				}
				subObj = withoutKey(subObj, "required")
			}
			newProps[name] = rewriteDraft3Schema(subObj)
		}
		out["properties"] = newProps
		if len(required) > 0 {
			sort.Strings(required)
			reqList := make([]any, len(required))
			for i, name := range required {
				reqList[i] = name
			}
			out["required"] = reqList
		}
	}
	if _, ok := out["required"].(bool); ok {
		delete(out, "required")
	}

	if pp, ok := sch["patternProperties"].(map[string]any); ok {
		newPP := make(map[string]any, len(pp))
		for pattern, sub := range pp {
			newPP[pattern] = rewriteDraft3Value(sub)
		}
		out["patternProperties"] = newPP
	}

	for _, key := range []string{"additionalProperties", "additionalItems"} {
		if sub, ok := sch[key].(map[string]any); ok {
			out[key] = rewriteDraft3Schema(sub)
		}
	}

	switch items := sch["items"].(type) {
	case map[string]any:
		out["items"] = rewriteDraft3Schema(items)
	case []any:
		newItems := make([]any, len(items))
		for i, sub := range items {
			newItems[i] = rewriteDraft3Value(sub)
		}
		out["items"] = newItems
	}

	if deps, ok := sch["dependencies"].(map[string]any); ok {
		newDeps := make(map[string]any, len(deps))
		for name, dep := range deps {
			switch dep := dep.(type) {
			case string:
				newDeps[name] = []any{dep}
			default:
				newDeps[name] = rewriteDraft3Value(dep)
			}
		}
		out["dependencies"] = newDeps
	}

	if d, ok := sch["divisibleBy"]; ok {
		delete(out, "divisibleBy")
		out["multipleOf"] = d
	}

	if ext, ok := sch["extends"]; ok {
		delete(out, "extends")
		var allOf []any
		if existing, ok := out["allOf"].([]any); ok {
			allOf = append(allOf, existing...)
		}
		switch ext := ext.(type) {
		case []any:
			for _, sub := range ext {
				allOf = append(allOf, rewriteDraft3Value(sub))
			}
		default:
			allOf = append(allOf, rewriteDraft3Value(ext))
		}
		out["allOf"] = allOf
	}

	if t, ok := sch["type"]; ok {
		delete(out, "type")
		if branches, simple := draft3TypeBranches(t); branches != nil {
			allOf, _ := out["allOf"].([]any)
			out["allOf"] = append(append([]any(nil), allOf...), map[string]any{"anyOf": branches})
		} else if simple != nil {
			out["type"] = simple
		}
	}

	if dis, ok := sch["disallow"]; ok {
		delete(out, "disallow")
		if branches, simple := draft3TypeBranches(dis); branches != nil {
			out["not"] = map[string]any{"anyOf": branches}
		} else if simple != nil {
			out["not"] = map[string]any{"type": simple}
		}
	}

	if format, ok := sch["format"].(string); ok {
		if renamed, ok := draft3FormatRenames[format]; ok {
			out["format"] = renamed
		}
	}

	return out
}

// draft3TypeBranches converts a draft-03 "type"/"disallow" value. Plain
// type names come back as simple (nil when "any" makes the keyword void);
// a union containing schemas or unknown names comes back as anyOf
// branches.
func draft3TypeBranches(t any) (branches []any, simple any) {
	switch t := t.(type) {
	case string:
		if t == "any" {
			return nil, nil
		}
		if !draft3Types[t] {
			return []any{draft3NoMatch()}, nil
		}
		return nil, t
	case []any:
		var names []any
		needBranches := false
		for _, entry := range t {
			switch entry := entry.(type) {
			case string:
				if entry == "any" {
					return nil, nil
				}
				if !draft3Types[entry] {
					needBranches = true
				}
				names = append(names, entry)
			case map[string]any:
				needBranches = true
			}
		}
		if !needBranches {
			return nil, names
		}
		for _, entry := range t {
			switch entry := entry.(type) {
			case string:
				if draft3Types[entry] {
					branches = append(branches, map[string]any{"type": entry})
				} else {
					branches = append(branches, draft3NoMatch())
				}
			case map[string]any:
				branches = append(branches, rewriteDraft3Schema(entry))
			}
		}
		return branches, nil
	default:
		return nil, t
	}
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
