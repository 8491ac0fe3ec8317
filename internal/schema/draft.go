package schema

import (
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Draft identifiers as they appear in a schema's "$schema" keyword.
// These values are matched literally; do not change them.
const (
	JSONSchemaDraft3 = "http://json-schema.org/draft-03/schema#"
	JSONSchemaDraft4 = "http://json-schema.org/draft-04/schema#"
	JSONSchemaDraft6 = "http://json-schema.org/draft-06/schema#"
	JSONSchemaDraft7 = "http://json-schema.org/draft-07/schema#"
)

type Draft int

const (
	Draft3 Draft = iota + 1
	Draft4
	Draft6
	Draft7
)

// DefaultDraft is used when "$schema" is missing or not recognized.
const DefaultDraft = Draft4

func (d Draft) String() string {
	switch d {
	case Draft3:
		return "draft-03"
	case Draft4:
		return "draft-04"
	case Draft6:
		return "draft-06"
	case Draft7:
		return "draft-07"
	default:
		return "unknown"
	}
}

// URI returns the "$schema" identifier of the draft.
func (d Draft) URI() string {
	return draftURIs[d]
}

var draftURIs = map[Draft]string{
	Draft3: JSONSchemaDraft3,
	Draft4: JSONSchemaDraft4,
	Draft6: JSONSchemaDraft6,
	Draft7: JSONSchemaDraft7,
}

var uriToDraft = func() map[string]Draft {
	m := make(map[string]Draft, len(draftURIs))
	for _, d := range Drafts() {
		m[d.URI()] = d
	}
	return m
}()

// draftToEngine maps each draft to the engine draft it is compiled with.
// Draft-03 documents are rewritten to draft-04 first, see draft3.go.
var draftToEngine = map[Draft]*jsonschema.Draft{
	Draft3: jsonschema.Draft4,
	Draft4: jsonschema.Draft4,
	Draft6: jsonschema.Draft6,
	Draft7: jsonschema.Draft7,
}

var draftToFormatChecker = map[Draft]FormatChecker{
	Draft3: {draft: Draft3},
	Draft4: {draft: Draft4},
	Draft6: {draft: Draft6},
	Draft7: {draft: Draft7},
}

// Drafts lists the supported drafts, oldest first.
func Drafts() []Draft {
	return []Draft{Draft3, Draft4, Draft6, Draft7}
}

// DraftOf reads the "$schema" keyword of doc. Missing, non-string or
// unknown identifiers resolve to DefaultDraft.
func DraftOf(doc map[string]any) Draft {
	uri, _ := doc["$schema"].(string)
	if d, ok := uriToDraft[uri]; ok {
		return d
	}
	return DefaultDraft
}

// FormatChecker enables "format" assertions for one draft. The engine
// ships the format validators; the checker decides which draft's set is
// asserted and registers the draft specific extras.
type FormatChecker struct {
	draft Draft
}

func (f FormatChecker) Draft() Draft {
	return f.draft
}

func (f FormatChecker) apply(c *jsonschema.Compiler) {
	c.AssertFormat()
	if f.draft == Draft3 {
		for _, format := range draft3Formats {
			c.RegisterFormat(format)
		}
	}
}
