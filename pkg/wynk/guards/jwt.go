// Package guards provides stock route guards.
package guards

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wynkjs/wynk/pkg/wynk"
)

const (
	// ClaimsKey is the context key the JWT guard stores verified claims under
	ClaimsKey = "wynk.claims"
	// PublicKey marks a controller or handler as reachable without a token
	PublicKey = "isPublic"
)

// JWTConfig configures the JWT guard
type JWTConfig struct {
	// Secret is the HS256 signing key
	Secret []byte
	// Header carries the token, Authorization by default
	Header string
	// Scheme prefixes the token in Header, Bearer by default
	Scheme string
	// Leeway tolerates clock skew when checking exp and nbf
	Leeway time.Duration
}

// JWT returns a guard that requires a valid HS256 bearer token
func JWT(secret string) wynk.Guard {
	return JWTWithConfig(JWTConfig{Secret: []byte(secret)})
}

// JWTWithConfig returns a JWT guard with custom config. A missing or invalid
// token is answered with 401. Handlers marked Public skip the check.
func JWTWithConfig(cfg JWTConfig) wynk.Guard {
	if cfg.Header == "" {
		cfg.Header = "Authorization"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "Bearer"
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
	)

	return wynk.GuardFunc(func(c *wynk.Context) (bool, error) {
		if public, ok := c.Reflector().GetAllAndOverride(PublicKey); ok && public == true {
			return true, nil
		}

		raw := c.Request().Header(cfg.Header)
		if raw == "" {
			return false, wynk.Unauthorized("missing authorization token")
		}
		token, found := strings.CutPrefix(raw, cfg.Scheme+" ")
		if !found || token == "" {
			return false, wynk.Unauthorized(fmt.Sprintf("authorization header must use the %s scheme", cfg.Scheme))
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return cfg.Secret, nil
		}); err != nil {
			message := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "token expired"
			}
			return false, wynk.Unauthorized(message).WithCause(err)
		}

		c.Set(ClaimsKey, claims)
		return true, nil
	})
}

// Public marks a handler as reachable without a token
func Public() wynk.RouteOption {
	return wynk.SetMetadata(PublicKey, true)
}

// Claims returns the claims verified by the JWT guard for this request
func Claims(c wynk.RequestContext) (jwt.MapClaims, bool) {
	claims, ok := c.Get(ClaimsKey).(jwt.MapClaims)
	return claims, ok
}

// Subject returns the sub claim of the verified token, or "" when the request
// carries none
func Subject(c wynk.RequestContext) string {
	claims, ok := Claims(c)
	if !ok {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// SignToken issues an HS256 token for subject carrying roles
func SignToken(secret, subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
