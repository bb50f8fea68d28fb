package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wynkjs/wynk/pkg/wynk"
	"github.com/wynkjs/wynk/pkg/wynk/adapters"
)

func route(t *testing.T, handler wynk.HandlerFunc, mw ...wynk.MiddlewareFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	adapter := adapters.NewEchoAdapter(e)
	adapter.RegisterRoute(http.MethodGet, wynk.NewWynkPath("/ping"), handler, mw...)
	return e
}

func ok(c wynk.RequestContext) error {
	return c.Response().Blob(http.StatusOK, "text/plain", []byte("pong"))
}

func ping(e *echo.Echo, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	var seen string
	e := route(t, func(c wynk.RequestContext) error {
		seen = GetRequestID(c)
		return ok(c)
	}, RequestID())

	rec := ping(e)
	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, seen)

	rec = ping(e, RequestIDHeader, "client-id-1")
	assert.Equal(t, "client-id-1", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "client-id-1", seen)
}

func TestRequestID_ThroughApp(t *testing.T) {
	e := echo.New()
	app := wynk.New(adapters.NewEchoAdapter(e), wynk.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, app.Use(RequestID()))
	require.NoError(t, app.Register(wynk.NewController[struct{}]("/").
		Get("/whoami", func(c *wynk.Context) string { return GetRequestID(c) })))
	require.NoError(t, app.Build())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "abc")
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Body.String())
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	e := echo.New()
	adapter := adapters.NewEchoAdapter(e)
	adapter.Use(RequestID())
	adapter.Use(Logging(logger, "/health"))
	adapter.RegisterRoute(http.MethodGet, wynk.NewWynkPath("/ping"), ok)
	adapter.RegisterRoute(http.MethodGet, wynk.NewWynkPath("/health"), ok)
	adapter.RegisterRoute(http.MethodGet, wynk.NewWynkPath("/boom"), func(wynk.RequestContext) error {
		return errors.New("exploded")
	})

	ping(e)
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "request", first.Message)
	fields := first.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/ping", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.NotEmpty(t, fields["request_id"])

	failed := entries[1]
	assert.Equal(t, zapcore.ErrorLevel, failed.Level)
	assert.Equal(t, "request failed", failed.Message)
	assert.Equal(t, "exploded", failed.ContextMap()["error"])
}

func TestRateLimit(t *testing.T) {
	now := time.Unix(1_000, 0)
	store := &limiterStore{
		visitors: make(map[string]*visitor),
		cfg: RateLimitConfig{
			RPS:        1,
			Burst:      2,
			Expiration: time.Minute,
			KeyFunc:    func(c wynk.RequestContext) string { return c.Request().Header("X-Client") },
		},
		now: func() time.Time { return now },
	}
	e := route(t, ok, rateLimit(store))

	assert.Equal(t, http.StatusOK, ping(e, "X-Client", "a").Code)
	assert.Equal(t, http.StatusOK, ping(e, "X-Client", "a").Code)

	rec := ping(e, "X-Client", "a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"statusCode":429,"message":"Too Many Requests"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, ping(e, "X-Client", "b").Code, "clients are limited separately")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, ping(e, "X-Client", "a").Code, "tokens refill over time")

	now = now.Add(2 * time.Minute)
	ping(e, "X-Client", "c")
	assert.Len(t, store.visitors, 1, "idle clients are swept")
}

func TestRateLimit_Defaults(t *testing.T) {
	e := route(t, ok, RateLimit(RateLimitConfig{RPS: 0.001, Burst: 1}))

	assert.Equal(t, http.StatusOK, ping(e).Code)
	rec := ping(e)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Retry-After"))

	cfg := DefaultRateLimitConfig()
	assert.Equal(t, 10.0, cfg.RPS)
	assert.Equal(t, 20, cfg.Burst)
}
