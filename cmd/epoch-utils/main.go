// Command epoch-utils builds and runs EPOCH inside its container image.
//
// When installed under the names build_epoch or run_epoch it behaves as the
// matching subcommand, so images can expose those entrypoints as symlinks.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/plasmafair/epochctl/internal/cli"
	"github.com/plasmafair/epochctl/internal/config"
)

var version = "dev"

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "epoch-utils",
	Short: "Build and run EPOCH inside a container",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.Setup(cmd, "epoch-utils")
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

// aliases maps entrypoint names to subcommands.
var aliases = map[string]string{
	"build_epoch": "build",
	"run_epoch":   "run",
}

func init() {
	cli.AddGlobalFlags(rootCmd)
	rootCmd.AddCommand(buildCmd, runCmd, versionCmd)
}

// argsFor prefixes the subcommand implied by the program name, if any.
func argsFor(argv0 string, args []string) []string {
	if sub, ok := aliases[filepath.Base(argv0)]; ok {
		return append([]string{sub}, args...)
	}
	return args
}

func main() {
	rootCmd.SetArgs(argsFor(os.Args[0], os.Args[1:]))
	os.Exit(cli.Main(rootCmd))
}
