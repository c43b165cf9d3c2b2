// Package makefile enables commented-out build flags in an EPOCH Makefile
// for the duration of a build and puts the original file back afterwards.
//
// A flag line looks like
//
//	# DEFINES += $(D)PHOTONS
//
// and is enabled by dropping its comment leader. Matching is anchored at the
// end of the line, so PHOTONS never enables MORE_PHOTONS.
package makefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	xlog "github.com/plasmafair/epochctl/internal/log"
)

const (
	// Name is the file looked up in the build directory.
	Name = "Makefile"
	// BackupName is the sibling file holding the original while flags are on.
	BackupName = "Makefile.copy"
	// Marker precedes every flag name on a flag line.
	Marker = "$(D)"

	commentLeader = '#'
)

// ErrNotFound is returned when the build directory has no Makefile.
var ErrNotFound = errors.New("makefile not found")

// Toggle is an active flag modification. Restore must be called exactly
// once the work that needs the flags is done; With does this for you.
type Toggle struct {
	path   string
	backup string
	done   bool
}

// Enable validates dir/Makefile and, if any flags are given, backs it up and
// rewrites it with the matching flag lines uncommented. With no flags the
// file is not touched and no backup is created.
func Enable(dir string, flags []string) (*Toggle, error) {
	path := filepath.Join(dir, Name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a file", ErrNotFound, path)
	}

	if len(flags) == 0 {
		return &Toggle{path: path}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	backup := filepath.Join(dir, BackupName)
	// Both writes keep the exact mode; the backup later becomes the Makefile.
	perm := info.Mode().Perm()
	if err := renameio.WriteFile(backup, data, perm, renameio.IgnoreUmask()); err != nil {
		return nil, fmt.Errorf("backing up %s: %w", path, err)
	}

	lines := splitLines(string(data))
	enabled := EnableLines(lines, flags)
	if err := renameio.WriteFile(path, []byte(strings.Join(enabled, "")), perm, renameio.IgnoreUmask()); err != nil {
		// The atomic write left the original in place.
		if rmErr := os.Remove(backup); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	logger := xlog.WithComponent("makefile")
	logger.Debug().
		Str("path", path).
		Strs("flags", flags).
		Int("changed", countChanged(lines, enabled)).
		Msg("flags enabled")

	return &Toggle{path: path, backup: backup}, nil
}

// Restore moves the backup over the Makefile. Calling it again is a no-op.
func (t *Toggle) Restore() error {
	if t == nil || t.done {
		return nil
	}
	t.done = true
	if t.backup == "" {
		return nil
	}
	if err := os.Rename(t.backup, t.path); err != nil {
		return fmt.Errorf("restoring %s: %w", t.path, err)
	}
	return nil
}

// With runs fn while flags are enabled in dir/Makefile. The original file is
// restored on every exit path, including a panic in fn. An error from fn
// takes precedence; a failed restore is joined onto it.
func With(dir string, flags []string, fn func() error) (err error) {
	t, err := Enable(dir, flags)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := t.Restore(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}

// EnableLines returns a copy of lines in which every line ending in
// Marker+flag, for one of flags, has its comment leader removed. Flags are
// tried in order and the first match wins for a line. Line terminators are
// kept as they are.
func EnableLines(lines []string, flags []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line
		body := trimEOL(line)
		for _, flag := range flags {
			if flag == "" {
				continue
			}
			if strings.HasSuffix(body, Marker+flag) {
				out[i] = uncomment(line)
				break
			}
		}
	}
	return out
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// uncomment drops the first run of comment leader characters.
func uncomment(line string) string {
	i := strings.IndexByte(line, commentLeader)
	if i < 0 {
		return line
	}
	j := i
	for j < len(line) && line[j] == commentLeader {
		j++
	}
	return line[:i] + line[j:]
}

func countChanged(before, after []string) int {
	n := 0
	for i := range before {
		if before[i] != after[i] {
			n++
		}
	}
	return n
}
