// Package launch builds the docker and singularity command lines that run
// containerised EPOCH, and executes or prints them.
package launch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/plasmafair/epochctl/internal/epoch"
	xlog "github.com/plasmafair/epochctl/internal/log"
	"github.com/plasmafair/epochctl/internal/proc"
)

// ContainerOutput is where the host output directory is mounted.
const ContainerOutput = "/output"

// Default container references.
const (
	DefaultDockerContainer      = "ghcr.io/plasmafair/epoch:latest"
	DefaultSingularityContainer = "oras://ghcr.io/plasmafair/epoch.sif:latest"
	DefaultSingularityEntry     = "run_epoch"
	DefaultPullOutput           = "epoch.sif"
)

// ErrNoOutput is returned when no output directory was given or entered.
var ErrNoOutput = errors.New("no output directory given")

// Run describes one EPOCH run inside a container.
type Run struct {
	Container string
	Output    string // host directory, mounted at ContainerOutput
	Dims      epoch.Dims
	Photons   bool
}

func (r Run) epochArgs() []string {
	args := []string{"-d", r.Dims.String(), "-o", ContainerOutput}
	if r.Photons {
		args = append(args, "--photons")
	}
	return args
}

func (r Run) bind() (string, error) {
	abs, err := filepath.Abs(r.Output)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", r.Output, err)
	}
	return abs + ":" + ContainerOutput, nil
}

// DockerCommand runs EPOCH through the image's entrypoint:
//
//	docker run --rm -v <output>:/output <container> -d <d> -o /output [--photons]
func DockerCommand(r Run) (proc.Command, error) {
	if err := r.Dims.Validate(); err != nil {
		return proc.Command{}, err
	}
	bind, err := r.bind()
	if err != nil {
		return proc.Command{}, err
	}
	args := []string{"docker", "run", "--rm", "-v", bind, r.Container}
	return proc.Command{Args: append(args, r.epochArgs()...)}, nil
}

// SingularityRun adds the launcher options only singularity supports.
type SingularityRun struct {
	Run
	// Entrypoint is the command started inside the image, split on spaces.
	Entrypoint string
	NProcs     int
	// Srun launches with Slurm's srun and takes precedence over NProcs.
	Srun bool
}

// SingularityCommand runs EPOCH with singularity exec, optionally under srun
// or mpirun:
//
//	[srun | mpirun -n N] singularity exec --bind <output>:/output <container> run_epoch -d <d> -o /output [--photons]
func SingularityCommand(r SingularityRun) (proc.Command, error) {
	if err := r.Dims.Validate(); err != nil {
		return proc.Command{}, err
	}
	if r.NProcs < 1 {
		return proc.Command{}, fmt.Errorf("invalid process count %d", r.NProcs)
	}
	bind, err := r.bind()
	if err != nil {
		return proc.Command{}, err
	}
	entry := strings.Fields(r.Entrypoint)
	if len(entry) == 0 {
		entry = []string{DefaultSingularityEntry}
	}

	var args []string
	switch {
	case r.Srun:
		args = append(args, "srun")
	case r.NProcs != 1:
		args = append(args, "mpirun", "-n", strconv.Itoa(r.NProcs))
	}
	args = append(args, "singularity", "exec", "--bind", bind, r.Container)
	args = append(args, entry...)
	return proc.Command{Args: append(args, r.epochArgs()...)}, nil
}

// PullCommand downloads a singularity image to a local file usable as a
// container reference.
func PullCommand(container, output string) proc.Command {
	return proc.Command{Args: []string{"singularity", "pull", output, container}}
}

// ShellCommand opens a shell in a singularity image: a Python interpreter
// when python is set, cmd when given, an interactive shell otherwise.
func ShellCommand(container string, python bool, cmd string) proc.Command {
	var args []string
	switch {
	case python:
		args = []string{"singularity", "exec", container, "python"}
	case strings.TrimSpace(cmd) != "":
		args = append([]string{"singularity", "exec", container}, strings.Fields(cmd)...)
	default:
		args = []string{"singularity", "shell", container}
	}
	return proc.Command{Args: args, Foreground: true}
}

// PromptOutput returns output unchanged when set. Otherwise it asks for the
// directory on out and reads one line from in, which also allows
// `echo output_dir | epochctl docker`.
func PromptOutput(output string, in io.Reader, out io.Writer) (string, error) {
	if output != "" {
		return output, nil
	}
	fmt.Fprintln(out, "Please enter output directory:")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading output directory: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("%w: end of input", ErrNoOutput)
		}
		return "", ErrNoOutput
	}
	return line, nil
}

// Executor prints a command and, unless NoRun is set, runs it.
type Executor struct {
	Runner proc.Runner
	Out    io.Writer
	NoRun  bool
}

// Execute implements the print-or-run step shared by every launcher.
func (e *Executor) Execute(ctx context.Context, cmd proc.Command) error {
	if len(cmd.Args) == 0 {
		return proc.ErrEmptyCommand
	}
	if e.NoRun {
		fmt.Fprintf(e.Out, "Generated the command:\n%s\n", cmd)
		return nil
	}
	fmt.Fprintf(e.Out, "Running with the command:\n%s\n", cmd)

	logger := xlog.FromContext(ctx, "launch")
	logger.Debug().Str("program", cmd.Args[0]).Msg("executing")
	return e.Runner.Run(ctx, cmd)
}
