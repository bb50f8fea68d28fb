package wynk

import (
	"fmt"
	"regexp"
	"strings"
)

var paramNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidatePath validates route path syntax: balanced braces, well-formed
// parameter names, known parameter types and no repeated parameter names.
func ValidatePath(path WynkPath) error {
	raw := path.Raw()
	if strings.Count(raw, "{") != strings.Count(raw, "}") {
		return fmt.Errorf("mismatched braces in path: %s", raw)
	}

	seen := make(map[string]bool)
	for _, part := range path.Parts() {
		if part.Type != ParameterPart {
			continue
		}
		if !paramNamePattern.MatchString(part.Value) {
			return fmt.Errorf("invalid parameter name %q in path: %s", part.Value, raw)
		}
		if seen[part.Value] {
			return fmt.Errorf("parameter %q appears more than once in path: %s", part.Value, raw)
		}
		seen[part.Value] = true
		if part.ParamType != "" && !IsBuiltinType(part.ParamType) {
			return fmt.Errorf("unknown parameter type %q for %q in path: %s", part.ParamType, part.Value, raw)
		}
	}
	return nil
}
