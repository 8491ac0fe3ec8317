package schema

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const resourceURL = "item.schema.json"

var printer = message.NewPrinter(language.English)

// ValidationError is a single violation found in an instance.
type ValidationError struct {
	// Path locates the violation: string keys and int array indices.
	Path    []any
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// SchemaError reports a schema that is not valid under its draft's
// meta-schema or that cannot be compiled.
type SchemaError struct {
	Draft Draft
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s schema: %v", e.Draft, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Validator checks instances against one schema document.
type Validator struct {
	doc     map[string]any
	draft   Draft
	formats FormatChecker

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// Resolve binds doc to the validator of the draft named by its "$schema"
// keyword, falling back to draft-04. It never fails; schema problems are
// reported by CheckSchema.
func Resolve(doc map[string]any) *Validator {
	draft := DraftOf(doc)
	return &Validator{
		doc:     doc,
		draft:   draft,
		formats: draftToFormatChecker[draft],
	}
}

func (v *Validator) Draft() Draft {
	return v.draft
}

func (v *Validator) FormatChecker() FormatChecker {
	return v.formats
}

func (v *Validator) Schema() map[string]any {
	return v.doc
}

// CheckSchema validates the document against the draft's meta-schema and
// compiles it.
func (v *Validator) CheckSchema() error {
	v.once.Do(func() {
		v.compiled, v.err = v.compile()
	})
	return v.err
}

func (v *Validator) compile() (*jsonschema.Schema, error) {
	doc, err := Normalize(v.doc)
	if err != nil {
		return nil, &SchemaError{Draft: v.draft, Err: err}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &SchemaError{Draft: v.draft, Err: errors.New("schema must be an object")}
	}
	obj = Clone(obj).(map[string]any)
	if v.draft == Draft3 {
		if err := checkDraft3(obj); err != nil {
			return nil, &SchemaError{Draft: v.draft, Err: err}
		}
		obj = rewriteDraft3(obj)
	} else {
		obj["$schema"] = v.draft.URI()
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(draftToEngine[v.draft])
	c.UseRegexpEngine(compileRegexp)
	v.formats.apply(c)
	if err := c.AddResource(resourceURL, obj); err != nil {
		return nil, &SchemaError{Draft: v.draft, Err: err}
	}
	sch, err := c.Compile(resourceURL)
	if err != nil {
		var sve *jsonschema.SchemaValidationError
		if errors.As(err, &sve) {
			return nil, &SchemaError{Draft: v.draft, Err: sve.Err}
		}
		return nil, &SchemaError{Draft: v.draft, Err: err}
	}
	return sch, nil
}

// IterErrors validates instance and returns every violation in the order
// the engine reports them. A schema that failed to compile yields a single
// error at the document root.
func (v *Validator) IterErrors(instance any) []ValidationError {
	if err := v.CheckSchema(); err != nil {
		return []ValidationError{{Path: []any{}, Message: err.Error()}}
	}
	inst, err := Normalize(instance)
	if err != nil {
		return []ValidationError{{Path: []any{}, Message: err.Error()}}
	}
	err = v.compiled.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []ValidationError{{Path: []any{}, Message: err.Error()}}
	}
	var out []ValidationError
	collectErrors(ve, inst, &out)
	return out
}

// Validate returns the first violation, or nil.
func (v *Validator) Validate(instance any) error {
	if errs := v.IterErrors(instance); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func collectErrors(ve *jsonschema.ValidationError, inst any, out *[]ValidationError) {
	if len(ve.Causes) > 0 && descend(ve.ErrorKind) {
		for _, cause := range ve.Causes {
			collectErrors(cause, inst, out)
		}
		return
	}

	path := instancePath(inst, ve.InstanceLocation)
	if req, ok := ve.ErrorKind.(*kind.Required); ok {
		for _, name := range req.Missing {
			*out = append(*out, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("'%s' is a required property", name),
			})
		}
		return
	}
	*out = append(*out, ValidationError{
		Path:    path,
		Message: ve.ErrorKind.LocalizedString(printer),
	})
}

// descend reports whether an error of this kind only groups the errors of
// its causes. Combinators that need a branch to pass are reported as one
// error.
func descend(k jsonschema.ErrorKind) bool {
	switch k.(type) {
	case *kind.Schema, *kind.Group, *kind.Reference, *kind.AllOf:
		return true
	}
	return false
}

// instancePath turns an engine instance location into typed segments:
// indices into arrays become ints.
func instancePath(inst any, location []string) []any {
	path := make([]any, 0, len(location))
	cur := inst
	for _, token := range location {
		switch node := cur.(type) {
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil {
				path = append(path, token)
				cur = nil
				continue
			}
			path = append(path, i)
			if i >= 0 && i < len(node) {
				cur = node[i]
			} else {
				cur = nil
			}
		case map[string]any:
			path = append(path, token)
			cur = node[token]
		default:
			path = append(path, token)
			cur = nil
		}
	}
	return path
}
