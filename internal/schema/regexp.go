package schema

import (
	"github.com/dlclark/regexp2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Patterns in schemas are written for backtracking engines (lookaheads,
// backreferences), so both the engine and field admission use regexp2.

type backtrackRegexp regexp2.Regexp

func (re *backtrackRegexp) MatchString(s string) bool {
	matched, err := (*regexp2.Regexp)(re).MatchString(s)
	return err == nil && matched
}

func (re *backtrackRegexp) String() string {
	return (*regexp2.Regexp)(re).String()
}

func compileRegexp(expr string) (jsonschema.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, err
	}
	return (*backtrackRegexp)(re), nil
}

// Pattern is a field-name rule taken from "patternProperties". It matches
// at the start of a name only.
type Pattern struct {
	expr string
	re   *regexp2.Regexp
}

// CompilePattern compiles a "patternProperties" key.
func CompilePattern(expr string) (*Pattern, error) {
	re, err := regexp2.Compile(`^(?:`+expr+`)`, regexp2.None)
	if err != nil {
		return nil, err
	}
	return &Pattern{expr: expr, re: re}, nil
}

func (p *Pattern) MatchString(s string) bool {
	matched, err := p.re.MatchString(s)
	return err == nil && matched
}

func (p *Pattern) String() string {
	return p.expr
}
