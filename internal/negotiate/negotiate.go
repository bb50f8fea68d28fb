// Package negotiate parses Accept-Encoding headers and picks a content coding.
package negotiate

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// acceptHeader is the grammar root: a comma separated list of codings,
// where empty list elements are allowed.
type acceptHeader struct {
	Entries []*entry `parser:"@@? ( ',' @@? )*"`
}

type entry struct {
	Coding string   `parser:"@Token"`
	Params []*param `parser:"( ';' @@ )*"`
}

type param struct {
	Key   string `parser:"@Token"`
	Value string `parser:"'=' @(Token | String)"`
}

var parser = participle.MustBuild[acceptHeader](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(\\"|[^"])*"`},
		{Name: "Token", Pattern: "[!#$%&'*+\\-.^_`|~0-9A-Za-z]+"},
		{Name: "Punct", Pattern: `[,;=]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Coding is one entry of an Accept-Encoding header
type Coding struct {
	Name string
	Q    float64
}

// Parse parses an Accept-Encoding header. Names are lower-cased; a missing or
// malformed q-value counts as 1.
func Parse(header string) ([]Coding, error) {
	if strings.TrimSpace(header) == "" {
		return nil, nil
	}
	ast, err := parser.ParseString("", header)
	if err != nil {
		return nil, err
	}

	codings := make([]Coding, 0, len(ast.Entries))
	for _, e := range ast.Entries {
		if e == nil {
			continue
		}
		c := Coding{Name: strings.ToLower(e.Coding), Q: 1}
		for _, p := range e.Params {
			if !strings.EqualFold(p.Key, "q") {
				continue
			}
			if q, err := strconv.ParseFloat(p.Value, 64); err == nil && q >= 0 && q <= 1 {
				c.Q = q
			}
		}
		codings = append(codings, c)
	}
	return codings, nil
}

// Accepts reports whether a client sending codings accepts name. An explicit
// entry wins over the * wildcard; q=0 excludes.
func Accepts(codings []Coding, name string) bool {
	name = strings.ToLower(name)
	wildcard := -1.0
	for _, c := range codings {
		if c.Name == name {
			return c.Q > 0
		}
		if c.Name == "*" {
			wildcard = c.Q
		}
	}
	return wildcard > 0
}

// Select returns the first of preferred that the header accepts, or "" when
// none is acceptable or the header cannot be parsed.
func Select(header string, preferred []string) string {
	codings, err := Parse(header)
	if err != nil || len(codings) == 0 {
		return ""
	}
	for _, name := range preferred {
		if name == "identity" {
			continue
		}
		if Accepts(codings, name) {
			return name
		}
	}
	return ""
}
