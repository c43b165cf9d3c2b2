// Package cli holds what the epochctl and epoch-utils commands share:
// global flags, config and logging setup, colored messages and the exit
// status policy.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/plasmafair/epochctl/internal/config"
	"github.com/plasmafair/epochctl/internal/epoch"
	xlog "github.com/plasmafair/epochctl/internal/log"
	"github.com/plasmafair/epochctl/internal/proc"
)

// AddGlobalFlags registers the flags every command accepts.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")
	root.SilenceUsage = true
	root.SilenceErrors = true
}

// Setup loads the configuration, lets the global flags override it and
// configures logging. Commands call it from PersistentPreRunE.
func Setup(cmd *cobra.Command, service string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Log.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("no-color"); f != nil && f.Changed {
		cfg.UI.NoColor = f.Value.String() == "true"
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.UI.NoColor = true
	}

	NoColor = cfg.UI.NoColor
	xlog.Configure(xlog.Config{
		Level:   cfg.Log.Level,
		Output:  cmd.ErrOrStderr(),
		Service: service,
		JSON:    cfg.Log.JSON,
	})
	return cfg, nil
}

// DimsFlag registers -d/--dims on fs.
func DimsFlag(fs *pflag.FlagSet, p *int, what string) {
	fs.IntVarP(p, "dims", "d", 1, "the number of dimensions in your EPOCH "+what+" (1, 2 or 3)")
}

// Dims validates a --dims value.
func Dims(v int) (epoch.Dims, error) {
	d := epoch.Dims(v)
	return d, d.Validate()
}

// Main executes root with a context cancelled on SIGINT/SIGTERM and returns
// the process exit status. A failed child process yields its own status.
func Main(root *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = xlog.ContextWithInvocationID(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		PrintError("%v", err)
		return proc.ExitCode(err)
	}
	return 0
}

// StringOr returns v if set, def otherwise. Flags whose defaults come from
// the config file are registered empty and resolved with it.
func StringOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
