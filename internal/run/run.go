// Package run launches an installed EPOCH executable. EPOCH asks for its
// output directory on standard input; Run answers that prompt.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/plasmafair/epochctl/internal/epoch"
	xlog "github.com/plasmafair/epochctl/internal/log"
	"github.com/plasmafair/epochctl/internal/proc"
)

// ErrNoOutputDir is returned when the output directory does not exist.
var ErrNoOutputDir = errors.New("output directory not found")

// Options selects the executable and where it writes.
type Options struct {
	Dims    epoch.Dims
	Output  string
	Photons bool
	// BinDir holds the executables. Empty means look them up on PATH.
	BinDir string
}

// Launcher starts EPOCH through a proc.Runner.
type Launcher struct {
	Runner proc.Runner
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Launcher using os/exec.
func New() *Launcher {
	return &Launcher{Runner: proc.ExecRunner{}}
}

// Executable resolves the program for dims and photons, under binDir when
// set and as a bare name for PATH lookup otherwise.
func Executable(dims epoch.Dims, photons bool, binDir string) (string, error) {
	name := epoch.ExeName(dims, photons)
	if binDir == "" {
		return name, nil
	}
	abs, err := filepath.Abs(binDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", binDir, err)
	}
	return filepath.Join(abs, name), nil
}

// Run starts EPOCH and writes the absolute output path as the only content
// of its standard input.
func (l *Launcher) Run(ctx context.Context, opts Options) error {
	if err := opts.Dims.Validate(); err != nil {
		return err
	}
	exe, err := Executable(opts.Dims, opts.Photons, opts.BinDir)
	if err != nil {
		return err
	}

	info, err := os.Stat(opts.Output)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoOutputDir, opts.Output)
	}
	output, err := filepath.Abs(opts.Output)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", opts.Output, err)
	}

	logger := xlog.FromContext(ctx, "run")
	logger.Info().Str("exe", exe).Str("output", output).Msg("launching")

	return l.Runner.Run(ctx, proc.Command{
		Args:   []string{exe},
		Stdin:  strings.NewReader(output),
		Stdout: l.Stdout,
		Stderr: l.Stderr,
	})
}
