package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/wynkjs/wynk/pkg/wynk"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			diag := o.diagnostics()

			cfg, err := o.loadConfig(cmd)
			if err != nil {
				diag.ReportError(err)
				return err
			}
			logger, err := o.logger(cfg)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			app := fx.New(
				options(cfg, logger),
				fx.WithLogger(func() fxevent.Logger {
					return &fxevent.ZapLogger{Logger: logger.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
				}),
				fx.StopTimeout(cfg.Server.ShutdownTimeout),
				fx.Invoke(serveHTTP),
			)
			if err := app.Err(); err != nil {
				diag.ReportError(err)
				return err
			}

			diag.Header(fmt.Sprintf("serving on %s with %s", cfg.Addr(), cfg.Server.Adapter))
			return run(cmd.Context(), app, cfg)
		},
	}
}

// run starts app, waits for a signal or a shutdown request and stops it
// within the configured shutdown timeout.
func run(ctx context.Context, app *fx.App, cfg *wynk.Config) error {
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	var sig fx.ShutdownSignal
	select {
	case sig = <-app.Wait():
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return err
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("server exited with code %d", sig.ExitCode)
	}
	return nil
}

// serveHTTP ties the listener to the fx lifecycle. A listener failure shuts
// the whole application down.
func serveHTTP(lc fx.Lifecycle, shutdowner fx.Shutdowner, app *wynk.App, cfg *wynk.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := app.Listen(cfg.Addr()); err != nil {
					logger.Error("server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down", zap.String("engine", app.Engine().Name()))
			return app.Shutdown(ctx)
		},
	})
}
