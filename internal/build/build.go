// Package build compiles an EPOCH variant and installs the binary under the
// checkout's bin directory using the epoch_{d}d[_photons] naming convention.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/plasmafair/epochctl/internal/epoch"
	xlog "github.com/plasmafair/epochctl/internal/log"
	"github.com/plasmafair/epochctl/internal/makefile"
	"github.com/plasmafair/epochctl/internal/proc"
)

// DefaultCompiler is passed to make as COMPILER when none is configured.
const DefaultCompiler = "gfortran"

// ErrNoSourceDir is returned when the checkout lacks the epoch{d}d directory.
var ErrNoSourceDir = errors.New("source directory not found")

// Options selects what to build.
type Options struct {
	EpochDir string // top level of the EPOCH checkout
	Dims     epoch.Dims
	Compiler string
	Photons  bool
}

// Builder drives make through a proc.Runner.
type Builder struct {
	Runner proc.Runner
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Builder running make with os/exec.
func New() *Builder {
	return &Builder{Runner: proc.ExecRunner{}}
}

// Build compiles the requested variant with its feature flags enabled in the
// Makefile, moves the result to EpochDir/bin and cleans the source tree.
// It returns the path of the installed executable.
func (b *Builder) Build(ctx context.Context, opts Options) (string, error) {
	if err := opts.Dims.Validate(); err != nil {
		return "", err
	}
	compiler := opts.Compiler
	if compiler == "" {
		compiler = DefaultCompiler
	}

	dir := filepath.Join(opts.EpochDir, epoch.SourceDir(opts.Dims))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrNoSourceDir, dir)
	}

	logger := xlog.FromContext(ctx, "build")
	logger.Info().
		Str("dir", dir).
		Str("compiler", compiler).
		Bool("photons", opts.Photons).
		Msg("building")

	err := makefile.With(dir, epoch.BuildFlags(opts.Photons), func() error {
		return b.make(ctx, "-j", "--directory", dir, "COMPILER="+compiler)
	})
	if err != nil {
		return "", fmt.Errorf("building %s: %w", dir, err)
	}

	name := epoch.SourceDir(opts.Dims)
	built := filepath.Join(dir, "bin", name)
	binDir := filepath.Join(opts.EpochDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", binDir, err)
	}
	installed := filepath.Join(binDir, epoch.ExeName(opts.Dims, opts.Photons))
	if err := move(built, installed); err != nil {
		return "", fmt.Errorf("installing %s: %w", installed, err)
	}
	logger.Info().Str("exe", installed).Msg("installed")

	if err := b.make(ctx, "--directory", dir, "clean"); err != nil {
		return installed, fmt.Errorf("cleaning %s: %w", dir, err)
	}
	return installed, nil
}

func (b *Builder) make(ctx context.Context, args ...string) error {
	return b.Runner.Run(ctx, proc.Command{
		Args:   append([]string{"make"}, args...),
		Stdout: b.Stdout,
		Stderr: b.Stderr,
	})
}

// move renames src to dst, falling back to an atomic copy when they sit on
// different filesystems (a bind-mounted bin directory in a container).
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Remove(src)
}
