// Command epochctl runs EPOCH in a Docker or Singularity container.
//
// Like EPOCH itself it asks for the output directory once started, unless
// one is given with -o. This also allows
//
//	echo output_dir | epochctl docker
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/plasmafair/epochctl/internal/cli"
	"github.com/plasmafair/epochctl/internal/config"
	"github.com/plasmafair/epochctl/internal/proc"
)

var version = "dev"

var (
	cfg config.Config
	// runner is replaced in tests.
	runner proc.Runner = proc.ExecRunner{}
)

var rootCmd = &cobra.Command{
	Use:   "epochctl",
	Short: "Run EPOCH via a container",
	Long: `Run EPOCH via a Docker or Singularity container.

Please select one of the subcommands provided. You can supply --help after
each subcommand to view further options.

The singularity subcommand can also pull an image to a local file or open a
shell inside the image.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.Setup(cmd, "epochctl")
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	cli.AddGlobalFlags(rootCmd)
	rootCmd.AddCommand(dockerCmd, singularityCmd, configCmd, versionCmd)
}

func main() {
	os.Exit(cli.Main(rootCmd))
}
