package guards

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wynkjs/wynk/pkg/wynk"
	"github.com/wynkjs/wynk/pkg/wynk/adapters"
)

const secret = "test-secret"

func serve(t *testing.T, ctrl wynk.Controller, opts ...wynk.Option) *echo.Echo {
	t.Helper()
	e := echo.New()
	app := wynk.New(adapters.NewEchoAdapter(e), append([]wynk.Option{wynk.WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, app.Register(ctrl))
	require.NoError(t, app.Build())
	return e
}

func get(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	var subject any
	var sub string
	e := serve(t, wynk.NewController[struct{}]("/").
		UseGuards(JWT(secret)).
		Get("/me", func(c *wynk.Context) string {
			claims, _ := Claims(c)
			subject = claims["sub"]
			sub = Subject(c)
			return "ok"
		}).
		Get("/health", func(c *wynk.Context) string { return "up:" + Subject(c) }, Public()))

	valid, err := SignToken(secret, "user-1", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	expired, err := SignToken(secret, "user-1", nil, -time.Hour)
	require.NoError(t, err)
	forged, err := SignToken("other-secret", "user-1", nil, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		token   string
		status  int
		message string
	}{
		{"valid", "/me", valid, http.StatusOK, ""},
		{"missing", "/me", "", http.StatusUnauthorized, "missing authorization token"},
		{"expired", "/me", expired, http.StatusUnauthorized, "token expired"},
		{"wrong key", "/me", forged, http.StatusUnauthorized, "invalid token"},
		{"alg none", "/me", none, http.StatusUnauthorized, "invalid token"},
		{"garbage", "/me", "not.a.jwt", http.StatusUnauthorized, "invalid token"},
		{"public", "/health", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(e, tt.path, tt.token)
			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Contains(t, rec.Body.String(), tt.message)
			}
		})
	}

	get(e, "/me", valid)
	assert.Equal(t, "user-1", subject)
	assert.Equal(t, "user-1", sub)
	assert.Equal(t, "up:", get(e, "/health", valid).Body.String(), "public routes carry no verified subject")
}

func TestJWT_Scheme(t *testing.T) {
	e := serve(t, wynk.NewController[struct{}]("/").
		Get("/", func() {}, wynk.UseGuards(JWTWithConfig(JWTConfig{Secret: []byte(secret), Header: "X-Token", Scheme: "Token"}))))

	token, err := SignToken(secret, "u", nil, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Token", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token scheme")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Token", "Token "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRoles(t *testing.T) {
	e := serve(t, wynk.NewController[struct{}]("/users").
		SetMetadata(RolesKey, []string{"admin"}).
		Get("/", func() string { return "list" }, RequireRoles("viewer")).
		Delete("/:id", func() {}).
		Get("/open", func() string { return "open" }, wynk.SetMetadata(RolesKey, []string{})),
		wynk.WithGlobalGuards(JWT(secret), Roles()))

	admin, _ := SignToken(secret, "a", []string{"admin"}, time.Hour)
	viewer, _ := SignToken(secret, "v", []string{"viewer"}, time.Hour)
	nobody, _ := SignToken(secret, "n", nil, time.Hour)

	assert.Equal(t, http.StatusOK, get(e, "/users", admin).Code, "controller roles merge with handler roles")
	assert.Equal(t, http.StatusOK, get(e, "/users", viewer).Code)
	assert.Equal(t, http.StatusForbidden, get(e, "/users", nobody).Code)

	req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Forbidden resource")

	assert.Equal(t, http.StatusForbidden, get(e, "/users/open", nobody).Code, "an empty handler list still merges controller roles")
}

func TestRolesFrom(t *testing.T) {
	fromHeader := RolesFrom(func(c *wynk.Context) []string {
		return []string{c.Request().Header("X-Role")}
	})
	e := serve(t, wynk.NewController[struct{}]("/").
		Get("/", func() string { return "ok" }, RequireRoles("ops"), wynk.UseGuards(fromHeader)).
		Get("/free", func() string { return "ok" }, wynk.UseGuards(fromHeader)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Role", "ops")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusForbidden, get(e, "/", "").Code)
	assert.Equal(t, http.StatusOK, get(e, "/free", "").Code, "no declared roles admits everyone")
}
