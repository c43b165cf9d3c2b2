// Package proc runs the external programs the wrappers drive: make, the
// EPOCH binaries and the container runtimes.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	xlog "github.com/plasmafair/epochctl/internal/log"
)

// ErrEmptyCommand is returned when a Command has no program.
var ErrEmptyCommand = errors.New("empty command")

// DefaultGrace is how long a cancelled child gets between SIGTERM and SIGKILL.
const DefaultGrace = 5 * time.Second

// Command describes one child process.
type Command struct {
	Args   []string
	Dir    string
	Stdin  io.Reader // defaults to os.Stdin
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr

	// Foreground keeps the child in the caller's process group so it can own
	// the terminal, as an interactive shell must.
	Foreground bool
}

// String renders the command line with arguments separated by single spaces.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Runner starts a command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, c Command) error
}

// ExecRunner runs commands with os/exec. Background children are started in
// their own process group and the whole group is terminated when ctx is
// cancelled.
type ExecRunner struct {
	Grace time.Duration
}

// Run implements Runner. A non-zero exit is returned as an error wrapping
// *exec.ExitError; use ExitCode to recover the status.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdin = orReader(c.Stdin, os.Stdin)
	cmd.Stdout = orWriter(c.Stdout, os.Stdout)
	cmd.Stderr = orWriter(c.Stderr, os.Stderr)
	if !c.Foreground {
		setGroup(cmd)
	}
	cmd.WaitDelay = r.Grace
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultGrace
	}

	logger := xlog.FromContext(ctx, "proc")
	logger.Debug().Strs("args", c.Args).Str("dir", c.Dir).Msg("starting")

	start := time.Now()
	err := cmd.Run()
	logger.Debug().
		Str("program", c.Args[0]).
		Int("exit_code", ExitCode(err)).
		Dur("elapsed", time.Since(start)).
		Msg("finished")
	if err != nil {
		return fmt.Errorf("running %s: %w", c.Args[0], err)
	}
	return nil
}

// ExitCode maps an error returned by a Runner to a process exit status:
// 0 for nil, the child's status for a non-zero exit, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

func orReader(r io.Reader, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w io.Writer, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
