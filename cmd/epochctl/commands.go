package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmafair/epochctl/internal/cli"
	"github.com/plasmafair/epochctl/internal/config"
	"github.com/plasmafair/epochctl/internal/launch"
	"github.com/plasmafair/epochctl/internal/proc"
)

// runFlags are shared by the docker and singularity subcommands.
type runFlags struct {
	container string
	dims      int
	output    string
	photons   bool
	noRun     bool
}

func (f *runFlags) register(cmd *cobra.Command, defaultContainer string) {
	fs := cmd.Flags()
	fs.StringVarP(&f.container, "container", "c", "", "the container to run (default from config, "+defaultContainer+")")
	cli.DimsFlag(fs, &f.dims, "run")
	fs.StringVarP(&f.output, "output", "o", "", "the path of the output directory; prompted for if not supplied")
	fs.BoolVar(&f.photons, "photons", false, "run with QED features enabled")
	fs.BoolVar(&f.noRun, "no-run", false, "print the command but don't run it")
}

// run resolves the common options, prompting for the output directory if
// needed.
func (f *runFlags) run(cmd *cobra.Command, container string) (launch.Run, error) {
	dims, err := cli.Dims(f.dims)
	if err != nil {
		return launch.Run{}, err
	}
	output, err := launch.PromptOutput(f.output, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return launch.Run{}, err
	}
	return launch.Run{
		Container: cli.StringOr(f.container, container),
		Output:    output,
		Dims:      dims,
		Photons:   f.photons,
	}, nil
}

func execute(cmd *cobra.Command, c proc.Command, noRun bool) error {
	e := &launch.Executor{Runner: runner, Out: cmd.OutOrStdout(), NoRun: noRun}
	return e.Execute(cmd.Context(), c)
}

// --- docker ---

var dockerFlags runFlags

var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Run EPOCH via a Docker container",
	Long: `Run EPOCH via a Docker container.

The output directory is mounted at /output inside the container, and the
container is removed after use. The input file 'input.deck' must be in the
output directory.

Example:
  epochctl docker -d 2 -o ./my_data --photons`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := dockerFlags.run(cmd, cfg.Docker.Container)
		if err != nil {
			return err
		}
		c, err := launch.DockerCommand(r)
		if err != nil {
			return err
		}
		return execute(cmd, c, dockerFlags.noRun)
	},
}

func init() {
	dockerFlags.register(dockerCmd, launch.DefaultDockerContainer)
}

// --- singularity ---

var (
	singularityFlags      runFlags
	singularityNProcs     int
	singularitySrun       bool
	singularityEntrypoint string
)

var singularityCmd = &cobra.Command{
	Use:   "singularity",
	Short: "Run EPOCH via a Singularity container",
	Long: `Run EPOCH via a Singularity container.

Use -n/--nprocs to run on several processes with mpirun, or --srun on HPC
machines with Slurm controllers.

Example:
  epochctl singularity -d 2 -o /scratch/me/run1 -n 16`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := singularityFlags.run(cmd, cfg.Singularity.Container)
		if err != nil {
			return err
		}
		nprocs := singularityNProcs
		if !cmd.Flags().Changed("nprocs") {
			nprocs = cfg.Singularity.NProcs
		} else if singularitySrun && nprocs != 1 {
			cli.PrintWarning("--srun takes the process count from Slurm, ignoring -n %d", nprocs)
		}
		c, err := launch.SingularityCommand(launch.SingularityRun{
			Run:        r,
			Entrypoint: cli.StringOr(singularityEntrypoint, cfg.Singularity.Entrypoint),
			NProcs:     nprocs,
			Srun:       singularitySrun,
		})
		if err != nil {
			return err
		}
		return execute(cmd, c, singularityFlags.noRun)
	},
}

var (
	pullContainer string
	pullOutput    string
	pullNoRun     bool
)

var singularityPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull a Singularity container to a local image file",
	Long: `Pull a Singularity container to a local image file.

The image file may be used as an argument to -c/--container.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := launch.PullCommand(cli.StringOr(pullContainer, cfg.Singularity.Container), pullOutput)
		return execute(cmd, c, pullNoRun)
	},
}

var (
	shellContainer string
	shellPython    bool
	shellCommand   string
	shellNoRun     bool
)

var singularityShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open a shell in the Singularity image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := launch.ShellCommand(cli.StringOr(shellContainer, cfg.Singularity.Container), shellPython, shellCommand)
		return execute(cmd, c, shellNoRun)
	},
}

func init() {
	singularityFlags.register(singularityCmd, launch.DefaultSingularityContainer)
	fs := singularityCmd.Flags()
	fs.IntVarP(&singularityNProcs, "nprocs", "n", 1, "the number of processes to run on; uses mpirun unless --srun is set")
	fs.BoolVar(&singularitySrun, "srun", false, "run using srun instead of mpirun")
	fs.StringVar(&singularityEntrypoint, "entrypoint", "", "command started inside the image (default from config, "+launch.DefaultSingularityEntry+")")

	singularityPullCmd.Flags().StringVarP(&pullContainer, "container", "c", "", "the container to pull (default from config, "+launch.DefaultSingularityContainer+")")
	singularityPullCmd.Flags().StringVarP(&pullOutput, "output", "o", launch.DefaultPullOutput, "filename of local image file")
	singularityPullCmd.Flags().BoolVar(&pullNoRun, "no-run", false, "print the command but don't run it")

	singularityShellCmd.Flags().StringVarP(&shellContainer, "container", "c", "", "the container to open (default from config, "+launch.DefaultSingularityContainer+")")
	singularityShellCmd.Flags().BoolVar(&shellPython, "python", false, "open directly into a Python shell")
	singularityShellCmd.Flags().StringVar(&shellCommand, "cmd", "", "run a specific command on entering the shell")
	singularityShellCmd.Flags().BoolVar(&shellNoRun, "no-run", false, "print the command but don't run it")

	singularityCmd.AddCommand(singularityPullCmd, singularityShellCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", cli.Bold(k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a configuration value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.ValidKeys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		cli.PrintSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Unset %s", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.FilePath())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd, configPathCmd)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "epochctl version %s\n", version)
	},
}
