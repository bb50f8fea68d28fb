package wynk

import (
	"strings"
)

// PathPartType represents the type of path part
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	WildcardPart
)

// PathPart represents a single part of a route path
type PathPart struct {
	Type      PathPartType
	Value     string // For static parts: the literal text, for parameters: the parameter name
	ParamType string // For typed parameters ({id:int}): the type, empty otherwise
}

// WynkPath is a route path. Parameters may be written as :name, {name} or {name:type};
// a trailing * or {*} is a wildcard.
type WynkPath string

// NewWynkPath creates a new WynkPath from a string
func NewWynkPath(path string) WynkPath {
	return WynkPath(path)
}

// Raw returns the original path
func (p WynkPath) Raw() string {
	return string(p)
}

// Parts parses the path and returns the individual parts
func (p WynkPath) Parts() []PathPart {
	path := string(p)
	var parts []PathPart

	i := 0
	for i < len(path) {
		switch {
		case path[i] == '{':
			j := i + 1
			for j < len(path) && path[j] != '}' {
				j++
			}
			if j >= len(path) {
				// Malformed, treat as static
				parts = appendStatic(parts, path[i:i+1])
				i++
				continue
			}
			content := path[i+1 : j]
			if content == "*" {
				parts = append(parts, PathPart{Type: WildcardPart, Value: "*"})
			} else {
				name, typ := content, ""
				if colon := strings.Index(content, ":"); colon != -1 {
					name, typ = content[:colon], content[colon+1:]
				}
				parts = append(parts, PathPart{Type: ParameterPart, Value: name, ParamType: typ})
			}
			i = j + 1
		case path[i] == ':' && (i == 0 || path[i-1] == '/'):
			j := i + 1
			for j < len(path) && path[j] != '/' {
				j++
			}
			parts = append(parts, PathPart{Type: ParameterPart, Value: path[i+1 : j]})
			i = j
		case path[i] == '*' && (i == 0 || path[i-1] == '/'):
			parts = append(parts, PathPart{Type: WildcardPart, Value: "*"})
			i = len(path)
		default:
			start := i
			for i < len(path) && path[i] != '{' && !(path[i] == ':' && path[i-1] == '/') && !(path[i] == '*' && path[i-1] == '/') {
				i++
			}
			if i == start {
				i++
			}
			parts = appendStatic(parts, path[start:i])
		}
	}

	return parts
}

func appendStatic(parts []PathPart, value string) []PathPart {
	if n := len(parts); n > 0 && parts[n-1].Type == StaticPart {
		parts[n-1].Value += value
		return parts
	}
	return append(parts, PathPart{Type: StaticPart, Value: value})
}

// ParamTypes returns the declared types of typed parameters
func (p WynkPath) ParamTypes() map[string]string {
	types := make(map[string]string)
	for _, part := range p.Parts() {
		if part.Type == ParameterPart && part.ParamType != "" {
			types[part.Value] = part.ParamType
		}
	}
	return types
}

// ParamNames returns the parameter names in declaration order
func (p WynkPath) ParamNames() []string {
	var names []string
	for _, part := range p.Parts() {
		if part.Type == ParameterPart {
			names = append(names, part.Value)
		}
	}
	return names
}

// Colon renders the path in :param syntax, the form echo, gin and fiber share.
// wildcard is the text used for wildcard parts.
func (p WynkPath) Colon(wildcard string) string {
	var b strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString(":" + part.Value)
		case WildcardPart:
			b.WriteString(wildcard)
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// Shape returns the path with parameter names erased, so /users/:id and
// /users/{userId:int} compare equal.
func (p WynkPath) Shape() string {
	var b strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString(":")
		case WildcardPart:
			b.WriteString("*")
		default:
			b.WriteString(part.Value)
		}
	}
	shape := b.String()
	if len(shape) > 1 {
		shape = strings.TrimSuffix(shape, "/")
	}
	return shape
}

// JoinPaths joins path segments with single slashes and a leading slash
func JoinPaths(segments ...string) WynkPath {
	var parts []string
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return WynkPath("/" + strings.Join(parts, "/"))
}
