package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/wynkjs/wynk/pkg/wynk"
	"github.com/wynkjs/wynk/pkg/wynk/adapters"
	"github.com/wynkjs/wynk/pkg/wynk/guards"
	"github.com/wynkjs/wynk/pkg/wynk/interceptors"
	"github.com/wynkjs/wynk/pkg/wynk/middleware"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wynk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRoutesCommand(t *testing.T) {
	out, _, err := execute(t, "routes")
	require.NoError(t, err)

	assert.Contains(t, out, "Wynk: Echo routes")
	assert.Contains(t, out, "[UsersController]")
	assert.Contains(t, out, "/users/{id:uuid}")
	assert.Contains(t, out, "5 routes")

	lines := strings.Split(out, "\n")
	var methods []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 4 && strings.HasPrefix(fields[1], "/users") {
			methods = append(methods, fields[0]+" "+fields[1])
		}
	}
	assert.Equal(t, []string{
		"GET /users",
		"POST /users",
		"DELETE /users/{id:uuid}",
		"GET /users/{id:uuid}",
		"PATCH /users/{id:uuid}",
	}, methods)
}

func TestRoutesCommand_Adapters(t *testing.T) {
	for flag, name := range map[string]string{"echo": "Echo", "gin": "Gin", "fiber": "Fiber"} {
		t.Run(flag, func(t *testing.T) {
			out, _, err := execute(t, "routes", "--adapter", flag)
			require.NoError(t, err)
			assert.Contains(t, out, "Wynk: "+name+" routes")
		})
	}
}

func TestRoutesCommand_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  adapter: gin
  global_prefix: /api
`)
	out, _, err := execute(t, "routes", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Gin routes")
	assert.Contains(t, out, "/api/users/{id:uuid}")
}

func TestRoutesCommand_Quiet(t *testing.T) {
	out, _, err := execute(t, "routes", "-q")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errOut string
	}{
		{"unknown adapter", []string{"routes", "--adapter", "iris"}, "server.adapter must be echo, gin or fiber"},
		{"missing config file", []string{"serve", "--config", "/nonexistent/wynk.yaml"}, "✗"},
		{"verbose and quiet", []string{"routes", "-v", "-q"}, ""},
		{"unexpected argument", []string{"routes", "extra"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, errOut, tt.errOut)
		})
	}
}

func TestNewEngine(t *testing.T) {
	cfg := wynk.DefaultConfig()
	for adapter, expected := range map[string]string{"echo": "Echo", "GIN": "Gin", "fiber": "Fiber"} {
		cfg.Server.Adapter = adapter
		engine, err := newEngine(cfg)
		require.NoError(t, err)
		assert.Equal(t, expected, engine.Name())
	}

	cfg.Server.Adapter = "iris"
	_, err := newEngine(cfg)
	assert.ErrorIs(t, err, wynk.ErrConfiguration)
}

func TestNewCacheStore(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("disabled", func(t *testing.T) {
		cfg := wynk.DefaultConfig()
		assert.Nil(t, newCacheStore(fxtest.NewLifecycle(t), cfg, logger))
	})

	t.Run("memory", func(t *testing.T) {
		cfg := wynk.DefaultConfig()
		cfg.Cache.TTL = time.Minute
		assert.IsType(t, &interceptors.MemoryStore{}, newCacheStore(fxtest.NewLifecycle(t), cfg, logger))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := wynk.DefaultConfig()
		cfg.Cache.TTL = time.Minute
		cfg.Cache.RedisAddr = mr.Addr()

		lc := fxtest.NewLifecycle(t)
		store := newCacheStore(lc, cfg, logger)
		assert.IsType(t, &interceptors.RedisStore{}, store)
		lc.RequireStart().RequireStop()
	})
}

func newTestApp(t *testing.T, mutate func(*wynk.Config)) (*wynk.App, http.Handler) {
	t.Helper()
	cfg := wynk.DefaultConfig()
	mutate(cfg)

	var app *wynk.App
	fxtest.New(t, options(cfg, zaptest.NewLogger(t)), fx.Populate(&app))
	require.NotNil(t, app)
	return app, app.Engine().(*adapters.EchoAdapter).GetEngine()
}

func TestNewApp_Wiring(t *testing.T) {
	const secret = "cli-secret"
	_, h := newTestApp(t, func(cfg *wynk.Config) {
		cfg.Auth.JWTSecret = secret
		cfg.Cache.TTL = time.Minute
		cfg.RateLimit.RPS = 1
		cfg.RateLimit.Burst = 2
	})

	do := func(method, target, body, auth string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, target, nil)
		}
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/users", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "MISS", rec.Header().Get(interceptors.CacheHeader))

	rec = do(http.MethodGet, "/users", "", "")
	assert.Equal(t, "HIT", rec.Header().Get(interceptors.CacheHeader))

	// burst of 2 is spent by the two reads above
	rec = do(http.MethodPost, "/users", `{"email":"a@b.co","firstName":"A","lastName":"B"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestNewApp_Guards(t *testing.T) {
	const secret = "cli-secret"
	_, h := newTestApp(t, func(cfg *wynk.Config) {
		cfg.Auth.JWTSecret = secret
		cfg.RateLimit.RPS = 0
	})

	body := `{"email":"a@b.co","firstName":"A","lastName":"B"}`
	post := func(auth string) int {
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post(""))

	token, err := guards.SignToken(secret, "cli", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, post("Bearer "+token))
}

func TestNewApp_Unprotected(t *testing.T) {
	_, h := newTestApp(t, func(cfg *wynk.Config) { cfg.RateLimit.RPS = 0 })

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"email":"a@b.co","firstName":"A","lastName":"B"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServeHTTP_Lifecycle(t *testing.T) {
	cfg := wynk.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	app := fxtest.New(t,
		options(cfg, zaptest.NewLogger(t)),
		fx.Invoke(serveHTTP),
	)
	app.RequireStart()
	app.RequireStop()
}
