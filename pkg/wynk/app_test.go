package wynk_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	wynkerrors "github.com/wynkjs/wynk/internal/errors"
	"github.com/wynkjs/wynk/pkg/inject"
	"github.com/wynkjs/wynk/pkg/wynk"
	"github.com/wynkjs/wynk/pkg/wynk/adapters"
)

type harness struct {
	app  *wynk.App
	echo *echo.Echo
}

func newHarness(t *testing.T, opts ...wynk.Option) *harness {
	t.Helper()
	adapter := adapters.NewDefaultEchoAdapter()
	opts = append([]wynk.Option{wynk.WithLogger(zaptest.NewLogger(t))}, opts...)
	return &harness{app: wynk.New(adapter, opts...), echo: adapter.GetEngine()}
}

func (h *harness) build(t *testing.T, controllers ...wynk.Controller) {
	t.Helper()
	require.NoError(t, h.app.Register(controllers...))
	require.NoError(t, h.app.Build())
}

func (h *harness) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type UsersController struct {
	seen []string
}

func (u *UsersController) FindOne(id string) (map[string]string, error) {
	u.seen = append(u.seen, id)
	return map[string]string{"id": id}, nil
}

func (u *UsersController) Create(dto CreateUserDTO) CreateUserDTO {
	return dto
}

type CreateUserDTO struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

func TestScenario_ParamBinding(t *testing.T) {
	container := inject.New()
	ctrl := &UsersController{}
	require.NoError(t, inject.ProvideValue(container, ctrl))

	h := newHarness(t, wynk.WithContainer(container))
	h.build(t, wynk.NewController[*UsersController]("/users").
		Get("/:id", (*UsersController).FindOne, wynk.Args(wynk.Param("id"))))

	rec := h.do(http.MethodGet, "/users/42", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"42"}`, rec.Body.String())
	assert.Equal(t, []string{"42"}, ctrl.seen)
}

func TestScenario_BodyValidation(t *testing.T) {
	h := newHarness(t)
	h.build(t, wynk.NewController[*UsersController]("/users").
		WithFactory(func(inject.Resolver) (*UsersController, error) { return &UsersController{}, nil }).
		Post("/", (*UsersController).Create, wynk.WithBody(CreateUserDTO{})))

	rec := h.do(http.MethodPost, "/users", `{"firstName":"A"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(400), body["statusCode"])
	assert.Equal(t, "Validation failed", body["message"])

	fields := map[string]string{}
	for _, e := range body["errors"].([]any) {
		entry := e.(map[string]any)
		fields[entry["field"].(string)] = entry["message"].(string)
	}
	assert.Equal(t, "email is required", fields["email"])
	assert.Contains(t, fields, "lastName")
	assert.NotContains(t, fields, "firstName")

	rec = h.do(http.MethodPost, "/users", `{"email":"a@b.co","firstName":"A","lastName":"B"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"email":"a@b.co","firstName":"A","lastName":"B"}`, rec.Body.String())
}

func TestScenario_Compression(t *testing.T) {
	payload := strings.Repeat(`{"ok":true}`, 200)[:2000]

	h := newHarness(t)
	h.build(t, wynk.NewController[struct{}]("/").
		Get("/big", func() wynk.RawJSON { return wynk.RawJSON(payload) }))

	rec := h.do(http.MethodGet, "/big", "", "Accept-Encoding", "gzip")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Contains(t, rec.Header().Get("Vary"), "Accept-Encoding")
	assert.Less(t, rec.Body.Len(), 2000)

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(plain))

	rec = h.do(http.MethodGet, "/big", "")
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, 2000, rec.Body.Len())
}

func TestScenario_ProductionException(t *testing.T) {
	cfg := wynk.DefaultConfig()
	cfg.Env = "production"

	h := newHarness(t, wynk.WithConfig(cfg))
	h.build(t, wynk.NewController[struct{}]("/users").
		Get("/:id", func(id string) (any, error) {
			return nil, wynk.NotFound("user " + id + " not found")
		}, wynk.Args(wynk.Param("id"))))

	rec := h.do(http.MethodGet, "/users/7", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "user 7 not found", body["message"])
	assert.Equal(t, float64(404), body["statusCode"])
	assert.Equal(t, "/users/7", body["path"])
	assert.NotContains(t, body, "stack")
	assert.NotContains(t, body, "name")
}

func TestDevelopmentException_IncludesDiagnostics(t *testing.T) {
	h := newHarness(t)
	h.build(t, wynk.NewController[struct{}]("/users").
		Get("/:id", func() error {
			return wynk.NotFound("missing").WithDetail(map[string]string{"id": "7"})
		}))

	rec := h.do(http.MethodGet, "/users/7", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "NotFoundException", body["name"])
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, map[string]any{"id": "7"}, body["errors"])
	assert.NotEmpty(t, body["stack"])
}

func TestProductionMasksServerErrors(t *testing.T) {
	cfg := wynk.DefaultConfig()
	cfg.Env = "production"

	h := newHarness(t, wynk.WithConfig(cfg))
	h.build(t, wynk.NewController[struct{}]("/").
		Get("/plain", func() error { return errors.New("db password leaked") }).
		Get("/exposed", func() error { return wynk.ServiceUnavailable("try later").Exposed() }))

	rec := h.do(http.MethodGet, "/plain", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["message"])

	rec = h.do(http.MethodGet, "/exposed", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "try later", decode(t, rec)["message"])
}

func TestBuild_DuplicateRoute(t *testing.T) {
	h := newHarness(t)
	first := wynk.NewController[struct{}]("/users").Named("First").
		Get("/:id", func(id string) string { return id }, wynk.Args(wynk.Param("id")))
	second := wynk.NewController[struct{}]("/users").Named("Second").
		Get("/{userId:int}", func(id int) int { return id }, wynk.Args(wynk.Param("userId")))

	require.NoError(t, h.app.Register(first, second))
	err := h.app.Build()

	require.Error(t, err)
	assert.ErrorIs(t, err, wynk.ErrConfiguration)
	var wynkErr *wynkerrors.BaseError
	require.ErrorAs(t, err, &wynkErr)
	assert.Equal(t, wynkerrors.DuplicateRouteErrorCode, wynkErr.ErrorCode())
	assert.Empty(t, h.app.Routes(), "nothing is registered when the build fails")

	assert.Equal(t, err, h.app.Build(), "build result is sticky")
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/users/1", "").Code)
}

func TestBuild_DistinctMethodsShareAPath(t *testing.T) {
	h := newHarness(t)
	h.build(t, wynk.NewController[struct{}]("/items").
		Get("/", func() string { return "list" }).
		Post("/", func() string { return "create" }))

	assert.Len(t, h.app.Routes(), 2)
	assert.Equal(t, "list", h.do(http.MethodGet, "/items", "").Body.String())
	assert.Equal(t, "create", h.do(http.MethodPost, "/items", "").Body.String())
}

func TestBuild_BindingErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler any
		opts    []wynk.RouteOption
	}{
		{"unbound parameter", func(id string) string { return id }, nil},
		{"too few bindings", func(a, b string) string { return a + b }, []wynk.RouteOption{wynk.Args(wynk.Param("a"))}},
		{"too many bindings", func(a string) string { return a }, []wynk.RouteOption{wynk.Args(wynk.Param("a"), wynk.Query("b"))}},
		{"index out of range", func(a string) string { return a }, []wynk.RouteOption{wynk.ArgAt(3, wynk.Param("a"))}},
		{"bound twice", func(a, b string) string { return a }, []wynk.RouteOption{wynk.ArgAt(0, wynk.Param("a")), wynk.ArgAt(0, wynk.Query("b"))}},
		{"ctx on wrong type", func(a string) string { return a }, []wynk.RouteOption{wynk.Args(wynk.Ctx())}},
		{"variadic", func(a ...string) string { return "" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.app.Register(wynk.NewController[struct{}]("/x").Get("/:a", tt.handler, tt.opts...)))

			err := h.app.Build()

			require.Error(t, err)
			assert.ErrorIs(t, err, wynk.ErrConfiguration)
			var wynkErr *wynkerrors.BaseError
			require.ErrorAs(t, err, &wynkErr)
			assert.Equal(t, wynkerrors.BindingErrorCode, wynkErr.ErrorCode())
		})
	}
}

func TestBuild_InvalidHandlers(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		handler any
	}{
		{"not a function", "/a", "nope"},
		{"too many results", "/b", func() (int, int, error) { return 0, 0, nil }},
		{"second result not error", "/c", func() (int, int) { return 0, 0 }},
		{"bad path", "/d/{id", func() {}},
		{"unknown param type", "/e/{id:money}", func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.app.Register(wynk.NewController[struct{}]("/").Get(tt.path, tt.handler)))
			assert.ErrorIs(t, h.app.Build(), wynk.ErrConfiguration)
		})
	}
}

func TestBuild_UnresolvableController(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.Register(wynk.NewController[*UsersController]("/users").
		Get("/:id", (*UsersController).FindOne, wynk.Args(wynk.Param("id")))))

	err := h.app.Build()

	require.Error(t, err)
	var wynkErr *wynkerrors.BaseError
	require.ErrorAs(t, err, &wynkErr)
	assert.Equal(t, wynkerrors.DependencyErrorCode, wynkErr.ErrorCode())
	assert.ErrorIs(t, err, inject.ErrNotProvided)
}

func TestBuild_FreezesRegistration(t *testing.T) {
	h := newHarness(t)
	ctrl := wynk.NewController[struct{}]("/").Get("/", func() string { return "ok" })
	h.build(t, ctrl)

	assert.ErrorIs(t, h.app.Register(wynk.NewController[struct{}]("/late")), wynk.ErrFrozen)
	assert.ErrorIs(t, h.app.Use(func(next wynk.HandlerFunc) wynk.HandlerFunc { return next }), wynk.ErrFrozen)
	assert.ErrorIs(t, h.app.Metadata().Define("k", "v", "Late"), wynk.ErrFrozen)
	assert.True(t, h.app.Metadata().Frozen())
	assert.Panics(t, func() { ctrl.Get("/late", func() {}) })
}

func TestBuild_GlobalPrefixAndRouteTable(t *testing.T) {
	h := newHarness(t, wynk.WithGlobalPrefix("/api"))
	h.build(t, wynk.NewController[struct{}]("/users").Named("UsersController").
		Get("/{id:int}", func(id int) int { return id }, wynk.Args(wynk.Param("id")), wynk.HandlerName("FindOne"),
			wynk.UseGuards(wynk.GuardFunc(func(*wynk.Context) (bool, error) { return true, nil }))).
		Post("/", func() {}, wynk.HandlerName("Create")))

	routes := wynk.SortRoutes(h.app.Routes())
	require.Len(t, routes, 2)
	assert.Equal(t, wynk.WynkPath("/api/users"), routes[0].Path)
	assert.Equal(t, http.StatusCreated, routes[0].StatusCode)
	assert.Equal(t, wynk.WynkPath("/api/users/{id:int}"), routes[1].Path)
	assert.Equal(t, "FindOne", routes[1].HandlerName)
	assert.Equal(t, "UsersController", routes[1].ControllerName)
	assert.Equal(t, map[string]string{"id": "int"}, routes[1].ParameterTypes)
	assert.Equal(t, 1, routes[1].Guards)

	assert.Len(t, h.app.RouteRegistry().GetRoutesByController("UsersController"), 2)
	assert.Equal(t, "5", h.do(http.MethodGet, "/api/users/5", "").Body.String())
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.app.Shutdown(context.Background()), wynk.ErrNotBuilt)

	h.build(t)
	assert.NoError(t, h.app.Shutdown(context.Background()))
}

func TestEngineMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) wynk.MiddlewareFunc {
		return func(next wynk.HandlerFunc) wynk.HandlerFunc {
			return func(c wynk.RequestContext) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	h := newHarness(t)
	require.NoError(t, h.app.Use(mw("app")))
	h.build(t, wynk.NewController[struct{}]("/").Use(mw("controller")).
		Get("/", func() { order = append(order, "handler") }, wynk.Use(mw("route"))))

	h.do(http.MethodGet, "/", "")

	assert.Equal(t, []string{"app", "controller", "route", "handler"}, order)
}
