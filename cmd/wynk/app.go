package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wynkjs/wynk/internal/demo"
	"github.com/wynkjs/wynk/pkg/inject"
	"github.com/wynkjs/wynk/pkg/wynk"
	"github.com/wynkjs/wynk/pkg/wynk/adapters"
	"github.com/wynkjs/wynk/pkg/wynk/guards"
	"github.com/wynkjs/wynk/pkg/wynk/interceptors"
	"github.com/wynkjs/wynk/pkg/wynk/middleware"
)

const cachePrefix = "wynk:cache:"

// newEngine returns the adapter named by server.adapter
func newEngine(cfg *wynk.Config) (wynk.WebServer, error) {
	switch strings.ToLower(cfg.Server.Adapter) {
	case "echo":
		return adapters.NewDefaultEchoAdapter(), nil
	case "gin":
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		return adapters.NewDefaultGinAdapter(), nil
	case "fiber":
		return adapters.NewDefaultFiberAdapter(), nil
	}
	return nil, fmt.Errorf("%w: unknown adapter %q", wynk.ErrConfiguration, cfg.Server.Adapter)
}

// newContainer registers the demo module providers
func newContainer(logger *zap.Logger) (*inject.Container, error) {
	c := inject.New()
	if err := demo.Provide(c, logger); err != nil {
		return nil, err
	}
	return c, nil
}

// newCacheStore picks redis when cache.redis_addr is set and memory otherwise.
// It returns nil when caching is disabled.
func newCacheStore(lc fx.Lifecycle, cfg *wynk.Config, logger *zap.Logger) interceptors.Store {
	if cfg.Cache.TTL <= 0 {
		return nil
	}
	if cfg.Cache.RedisAddr == "" {
		return interceptors.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("redis cache unreachable, requests will bypass it", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return interceptors.NewRedisStore(client, cachePrefix)
}

type appParams struct {
	fx.In

	Engine    wynk.WebServer
	Config    *wynk.Config
	Logger    *zap.Logger
	Container *inject.Container
	Cache     interceptors.Store `optional:"true"`
}

// newApp assembles the demo application with the stock middleware, guards
// and interceptors enabled by cfg.
func newApp(p appParams) (*wynk.App, error) {
	opts := []wynk.Option{
		wynk.WithConfig(p.Config),
		wynk.WithLogger(p.Logger),
		wynk.WithContainer(p.Container),
	}
	var cacheOpts []interceptors.CacheOption
	if secret := p.Config.Auth.JWTSecret; secret != "" {
		opts = append(opts, wynk.WithGlobalGuards(guards.JWT(secret), guards.Roles()))
		cacheOpts = append(cacheOpts, interceptors.KeyBy(func(c *wynk.Context) string {
			return guards.Subject(c)
		}))
	} else {
		p.Logger.Warn("auth.jwt_secret is empty, write routes are unprotected")
	}
	if p.Cache != nil {
		opts = append(opts, wynk.WithGlobalInterceptors(interceptors.Cache(p.Cache, p.Config.Cache.TTL, cacheOpts...)))
	}

	app := wynk.New(p.Engine, opts...)

	mw := []wynk.MiddlewareFunc{middleware.RequestID(), middleware.Logging(p.Logger)}
	if rl := p.Config.RateLimit; rl.RPS > 0 {
		mw = append(mw, middleware.RateLimit(middleware.RateLimitConfig{RPS: rl.RPS, Burst: rl.Burst}))
	}
	if err := app.Use(mw...); err != nil {
		return nil, err
	}
	if err := app.Register(demo.Controller()); err != nil {
		return nil, err
	}
	if err := app.Build(); err != nil {
		return nil, err
	}
	return app, nil
}

// options is the fx graph shared by serve and routes
func options(cfg *wynk.Config, logger *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, logger),
		fx.Provide(newEngine, newContainer, newCacheStore, newApp),
	)
}
