package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wynkjs/wynk/pkg/wynk"
)

func newRoutesCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Build the application and print its route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			diag := o.diagnostics()

			cfg, err := o.loadConfig(cmd)
			if err != nil {
				diag.ReportError(err)
				return err
			}

			var app *wynk.App
			fxApp := fx.New(
				options(cfg, zap.NewNop()),
				fx.NopLogger,
				fx.Populate(&app),
			)
			if err := fxApp.Err(); err != nil {
				diag.ReportError(err)
				return err
			}

			diag.Header(app.Engine().Name() + " routes")
			diag.RouteTable(app.Routes())
			return nil
		},
	}
}
