package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wynkjs/wynk/internal/diagnostics"
	"github.com/wynkjs/wynk/pkg/wynk"
)

type rootOptions struct {
	configPath string
	adapter    string
	port       int
	verbose    bool
	quiet      bool
	noColor    bool

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	o := &rootOptions{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   "wynk",
		Short: "Wynk demo server",
		Long: `Serves the bundled users API on the echo, gin or fiber engine.

Configuration is read from wynk.yaml in the working directory, or from
--config, and can be overridden with WYNK_ environment variables such as
WYNK_SERVER_PORT or WYNK_AUTH_JWT_SECRET.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "config file (default ./wynk.yaml)")
	flags.StringVar(&o.adapter, "adapter", "", "web engine: echo, gin or fiber")
	flags.IntVarP(&o.port, "port", "p", 0, "listen port")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "only print errors")
	flags.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newServeCmd(o), newRoutesCmd(o))
	return cmd
}

func (o *rootOptions) diagnostics() *diagnostics.System {
	level := diagnostics.Info
	switch {
	case o.quiet:
		level = diagnostics.Error
	case o.verbose:
		level = diagnostics.Verbose
	}
	return diagnostics.NewWithWriters(level, o.out, o.errOut, !o.noColor && isTerminal(o.out))
}

// loadConfig reads the config file and applies flag overrides
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*wynk.Config, error) {
	cfg, err := wynk.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("adapter") {
		cfg.Server.Adapter = o.adapter
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = o.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) logger(cfg *wynk.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	switch {
	case o.quiet:
		zcfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case o.verbose:
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

// isTerminal reports whether w is the process stdout and color detection
// found a terminal there.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout && !color.NoColor
}
