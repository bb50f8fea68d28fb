package guards

import (
	"slices"

	"github.com/wynkjs/wynk/pkg/wynk"
)

// RolesKey is the metadata key listing the roles a handler accepts
const RolesKey = "roles"

// RolesFunc extracts the caller's roles from the request
type RolesFunc func(c *wynk.Context) []string

// RequireRoles records the roles a handler accepts
func RequireRoles(roles ...string) wynk.RouteOption {
	return wynk.SetMetadata(RolesKey, roles)
}

// Roles returns a guard that admits callers holding at least one of the roles
// declared under RolesKey on the handler or its controller. Handlers without
// declared roles are admitted. Caller roles come from the JWT claims.
func Roles() wynk.Guard {
	return RolesFrom(ClaimRoles)
}

// RolesFrom is Roles with a custom source for the caller's roles
func RolesFrom(fn RolesFunc) wynk.Guard {
	return wynk.GuardFunc(func(c *wynk.Context) (bool, error) {
		required := c.Reflector().Strings(RolesKey)
		if len(required) == 0 {
			return true, nil
		}
		for _, role := range fn(c) {
			if slices.Contains(required, role) {
				return true, nil
			}
		}
		return false, nil
	})
}

// ClaimRoles reads the "roles" claim verified by the JWT guard
func ClaimRoles(c *wynk.Context) []string {
	claims, ok := Claims(c)
	if !ok {
		return nil
	}
	var roles []string
	switch v := claims["roles"].(type) {
	case []any:
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	case []string:
		roles = v
	case string:
		roles = []string{v}
	}
	return roles
}
