package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plasmafair/epochctl/internal/build"
	"github.com/plasmafair/epochctl/internal/cli"
	"github.com/plasmafair/epochctl/internal/epoch"
	"github.com/plasmafair/epochctl/internal/launch"
	"github.com/plasmafair/epochctl/internal/proc"
	"github.com/plasmafair/epochctl/internal/run"
)

// runner is replaced in tests.
var runner proc.Runner = proc.ExecRunner{}

// --- build ---

var (
	buildDims     int
	buildCompiler string
	buildPhotons  bool
	buildEpochDir string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build an EPOCH executable",
	Long: `Build an EPOCH executable and install it as bin/epoch_<d>d[_photons].

Run from the top level of the EPOCH repository, or pass --epoch-dir.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dims, err := cli.Dims(buildDims)
		if err != nil {
			return err
		}
		epochDir := cli.StringOr(buildEpochDir, cfg.Build.EpochDir)
		if epochDir == "" {
			if epochDir, err = os.Getwd(); err != nil {
				return err
			}
		}

		compiler := cli.StringOr(buildCompiler, cfg.Build.Compiler)
		b := &build.Builder{Runner: runner, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
		cli.PrintStep("Building EPOCH %sd in %s", dims, epochDir)
		cli.PrintStatus("Compiler", "%s", compiler)
		for _, flag := range epoch.BuildFlags(buildPhotons) {
			cli.PrintStatus("Flag", "%s", flag)
		}
		exe, err := b.Build(cmd.Context(), build.Options{
			EpochDir: epochDir,
			Dims:     dims,
			Compiler: compiler,
			Photons:  buildPhotons,
		})
		if err != nil {
			return err
		}
		cli.PrintSuccess("Installed %s", exe)
		return nil
	},
}

func init() {
	fs := buildCmd.Flags()
	cli.DimsFlag(fs, &buildDims, "build")
	fs.StringVarP(&buildCompiler, "compiler", "c", "", "the compiler to use for the build (default from config, "+build.DefaultCompiler+")")
	fs.BoolVar(&buildPhotons, "photons", false, "build with QED features enabled")
	fs.StringVar(&buildEpochDir, "epoch-dir", "", "top level of the EPOCH repository (default: working directory)")
}

// --- run ---

var (
	runDims    int
	runOutput  string
	runPhotons bool
	runBinDir  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Entrypoint to containerised EPOCH",
	Long: `Entrypoint to containerised EPOCH.

Docker example:

  docker run --rm -v /home/username/epoch/my_data:/output \
      ghcr.io/plasmafair/epoch:latest -d 2 -o /output --photons

The input file 'input.deck' should be located at
/home/username/epoch/my_data/input.deck. The directory in the container must
match the directory supplied to -o/--output.

Singularity example:

  singularity exec --bind ./my_data:/output \
      oras://ghcr.io/plasmafair/epoch.sif:latest run_epoch -d 2 -o /output --photons`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dims, err := cli.Dims(runDims)
		if err != nil {
			return err
		}
		l := &run.Launcher{Runner: runner, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
		return l.Run(cmd.Context(), run.Options{
			Dims:    dims,
			Output:  runOutput,
			Photons: runPhotons,
			BinDir:  cli.StringOr(runBinDir, cfg.Run.BinDir),
		})
	},
}

func init() {
	fs := runCmd.Flags()
	cli.DimsFlag(fs, &runDims, "run")
	fs.StringVarP(&runOutput, "output", "o", launch.ContainerOutput, "the output directory; must contain input.deck")
	fs.BoolVar(&runPhotons, "photons", false, "run with QED features enabled")
	fs.StringVar(&runBinDir, "bin-dir", "", "directory containing EPOCH executables (default: search PATH)")
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "epoch-utils version %s\n", version)
	},
}
