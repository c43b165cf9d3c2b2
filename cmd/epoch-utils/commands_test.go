package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmafair/epochctl/internal/cli"
	"github.com/plasmafair/epochctl/internal/makefile"
	"github.com/plasmafair/epochctl/internal/proc"
	"github.com/plasmafair/epochctl/internal/run"
)

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execRoot(t *testing.T, rec *proc.Recorder, args ...string) (string, error) {
	t.Helper()
	t.Setenv("EPOCH_CONFIG", filepath.Join(t.TempDir(), "config.toml"))
	for _, env := range []string{"EPOCH_BUILD_COMPILER", "EPOCH_BUILD_EPOCH_DIR", "EPOCH_RUN_BIN_DIR"} {
		t.Setenv(env, "")
	}

	t.Setenv("NO_COLOR", "1")

	oldRunner, oldStderr, oldColor := runner, cli.Stderr, cli.NoColor
	runner = rec
	cli.Stderr = &bytes.Buffer{}

	var out bytes.Buffer
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		runner, cli.Stderr, cli.NoColor = oldRunner, oldStderr, oldColor
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func mockEpochDir(t *testing.T, dims int) string {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, fmt.Sprintf("epoch%dd", dims))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0o755))
	content := "D := D\n# DEFINES += $(D)PHOTONS\n# DEFINES += $(D)MORE_PHOTONS\n"
	require.NoError(t, os.WriteFile(filepath.Join(src, makefile.Name), []byte(content), 0o644))
	return root
}

// buildingMake writes the Makefile as seen by make into the binary.
func buildingMake() *proc.Recorder {
	return &proc.Recorder{Hook: func(c proc.Command) error {
		if c.Args[1] != "-j" {
			return nil
		}
		dir := c.Args[3]
		data, err := os.ReadFile(filepath.Join(dir, makefile.Name))
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "bin", filepath.Base(dir)), data, 0o755)
	}}
}

func TestBuildCommand(t *testing.T) {
	root := mockEpochDir(t, 2)
	rec := buildingMake()

	_, err := execRoot(t, rec, "build", "-d", "2", "-c", "intel", "--photons", "--epoch-dir", root)
	require.NoError(t, err)

	exe := filepath.Join(root, "bin", "epoch_2d_photons")
	data, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n DEFINES += $(D)PHOTONS\n")
	assert.Contains(t, string(data), "# DEFINES += $(D)MORE_PHOTONS")

	require.Len(t, rec.Commands, 2)
	assert.Equal(t, "COMPILER=intel", rec.Commands[0].Args[4])
	assert.Equal(t, "clean", rec.Commands[1].Args[3])

	msgs := cli.Stderr.(*bytes.Buffer).String()
	assert.Contains(t, msgs, "Compiler: intel")
	assert.Contains(t, msgs, "Flag: PHOTONS")
}

func TestBuildCommand_WorkingDirectoryAndConfigCompiler(t *testing.T) {
	root := mockEpochDir(t, 1)
	chdirForTest(t, root)
	rec := buildingMake()

	_, err := execRoot(t, rec, "build")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "bin", "epoch_1d"))
	assert.Equal(t, "COMPILER=gfortran", rec.Commands[0].Args[4])
	assert.NotContains(t, cli.Stderr.(*bytes.Buffer).String(), "Flag:")
}

func TestBuildCommand_MakeFailure(t *testing.T) {
	root := mockEpochDir(t, 3)
	boom := errors.New("make failed")
	rec := &proc.Recorder{Hook: func(proc.Command) error { return boom }}

	_, err := execRoot(t, rec, "build", "-d", "3", "--photons", "--epoch-dir", root)
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(filepath.Join(root, "epoch3d", makefile.Name))
	require.NoError(t, err)
	assert.Equal(t, "D := D\n# DEFINES += $(D)PHOTONS\n# DEFINES += $(D)MORE_PHOTONS\n", string(data))
}

func TestBuildCommand_InvalidDims(t *testing.T) {
	rec := &proc.Recorder{}
	_, err := execRoot(t, rec, "build", "-d", "0")
	require.Error(t, err)
	assert.Empty(t, rec.Commands)
}

func TestRunCommand(t *testing.T) {
	out := t.TempDir()
	rec := &proc.Recorder{}

	_, err := execRoot(t, rec, "run", "-d", "3", "-o", out, "--photons", "--bin-dir", "/opt/epoch/bin")
	require.NoError(t, err)

	require.Len(t, rec.Commands, 1)
	assert.Equal(t, []string{"/opt/epoch/bin/epoch_3d_photons"}, rec.Commands[0].Args)
	assert.Equal(t, []string{out}, rec.Stdins)
}

func TestRunCommand_PathLookup(t *testing.T) {
	out := t.TempDir()
	rec := &proc.Recorder{}

	_, err := execRoot(t, rec, "run", "--output", out)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"epoch_1d"}}, rec.Args())
}

func TestRunCommand_MissingOutput(t *testing.T) {
	rec := &proc.Recorder{}
	_, err := execRoot(t, rec, "run", "-o", filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, run.ErrNoOutputDir)
	assert.Empty(t, rec.Commands)
}

func TestArgsFor(t *testing.T) {
	tests := []struct {
		argv0 string
		args  []string
		want  []string
	}{
		{"/usr/local/bin/run_epoch", []string{"-d", "2"}, []string{"run", "-d", "2"}},
		{"build_epoch", []string{"--photons"}, []string{"build", "--photons"}},
		{"/usr/local/bin/epoch-utils", []string{"run", "-d", "2"}, []string{"run", "-d", "2"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, argsFor(tt.argv0, tt.args), tt.argv0)
	}
}

func TestVersion(t *testing.T) {
	out, err := execRoot(t, &proc.Recorder{}, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "epoch-utils version "))
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
