package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmafair/epochctl/internal/epoch"
	"github.com/plasmafair/epochctl/internal/makefile"
	"github.com/plasmafair/epochctl/internal/proc"
)

const makefileTemplate = `# This is a comment
# There are 7 in the file
DEFINES := $(DEFINE)
D := D
# DEFINES += $(D)ICE_CREAM
DEFINES += $(D)PIZZA
# DEFINES += $(D)MILKSHAKE
# DEFINES += $(D)ICE_CREAM_SUNDAE
# DEFINES += $(D)PHOTONS
# DEFINES += $(D)MORE_PHOTONS

hello_world:
	echo $(DEFINES) > bin/epoch%[1]dd

clean:
	rm -f bin/epoch%[1]dd
`

// mockEpochDir lays out epoch1d..epoch3d, each with a Makefile whose default
// target writes its DEFINES into the would-be binary.
func mockEpochDir(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "build_epoch")
	for d := 1; d <= 3; d++ {
		dir := filepath.Join(root, fmt.Sprintf("epoch%dd", d))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
		content := fmt.Sprintf(makefileTemplate, d)
		require.NoError(t, os.WriteFile(filepath.Join(dir, makefile.Name), []byte(content), 0o644))
	}
	return root
}

// fakeMake emulates the mock Makefile: the build writes enabled flags into
// bin/epoch{d}d, clean is a no-op.
func fakeMake() *proc.Recorder {
	return &proc.Recorder{Hook: func(c proc.Command) error {
		if c.Args[1] != "-j" {
			return nil
		}
		dir := c.Args[3]
		data, err := os.ReadFile(filepath.Join(dir, makefile.Name))
		if err != nil {
			return err
		}
		var defines []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "DEFINES += $(D)") {
				defines = append(defines, "D"+strings.TrimPrefix(line, "DEFINES += $(D)"))
			}
		}
		out := filepath.Join(dir, "bin", filepath.Base(dir))
		return os.WriteFile(out, []byte(strings.Join(defines, " ")+"\n"), 0o755)
	}}
}

func TestBuild(t *testing.T) {
	for _, dims := range []epoch.Dims{1, 2, 3} {
		for _, compiler := range []string{"gfortran", "intel"} {
			for _, photons := range []bool{false, true} {
				t.Run(fmt.Sprintf("%dd_%s_photons=%t", dims, compiler, photons), func(t *testing.T) {
					root := mockEpochDir(t)
					runner := fakeMake()
					b := &Builder{Runner: runner}

					exe, err := b.Build(context.Background(), Options{
						EpochDir: root,
						Dims:     dims,
						Compiler: compiler,
						Photons:  photons,
					})
					require.NoError(t, err)
					assert.Equal(t, filepath.Join(root, "bin", epoch.ExeName(dims, photons)), exe)

					text, err := os.ReadFile(exe)
					require.NoError(t, err)
					assert.Contains(t, string(text), "DPIZZA")
					if photons {
						assert.Contains(t, string(text), "DPHOTONS")
					} else {
						assert.NotContains(t, string(text), "PHOTONS")
					}
					assert.NotContains(t, string(text), "DMORE_PHOTONS")

					src := filepath.Join(root, epoch.SourceDir(dims))
					want := [][]string{
						{"make", "-j", "--directory", src, "COMPILER=" + compiler},
						{"make", "--directory", src, "clean"},
					}
					if diff := cmp.Diff(want, runner.Args()); diff != "" {
						t.Errorf("make invocations mismatch (-want +got):\n%s", diff)
					}

					restored, err := os.ReadFile(filepath.Join(src, makefile.Name))
					require.NoError(t, err)
					assert.Equal(t, fmt.Sprintf(makefileTemplate, dims), string(restored))
					assert.NoFileExists(t, filepath.Join(src, makefile.BackupName))
				})
			}
		}
	}
}

func TestBuild_DefaultCompiler(t *testing.T) {
	root := mockEpochDir(t)
	runner := fakeMake()

	_, err := (&Builder{Runner: runner}).Build(context.Background(), Options{EpochDir: root, Dims: 2})
	require.NoError(t, err)
	assert.Equal(t, "COMPILER=gfortran", runner.Args()[0][4])
}

func TestBuild_MissingSourceDir(t *testing.T) {
	runner := &proc.Recorder{}
	_, err := (&Builder{Runner: runner}).Build(context.Background(), Options{EpochDir: t.TempDir(), Dims: 1})
	require.ErrorIs(t, err, ErrNoSourceDir)
	assert.Empty(t, runner.Commands)
}

func TestBuild_InvalidDims(t *testing.T) {
	_, err := (&Builder{Runner: &proc.Recorder{}}).Build(context.Background(), Options{EpochDir: t.TempDir(), Dims: 4})
	require.Error(t, err)
}

func TestBuild_MakeFailureRestoresMakefile(t *testing.T) {
	root := mockEpochDir(t)
	boom := errors.New("make: *** [all] Error 2")
	runner := &proc.Recorder{Hook: func(c proc.Command) error { return boom }}

	_, err := (&Builder{Runner: runner}).Build(context.Background(), Options{EpochDir: root, Dims: 1, Photons: true})
	require.ErrorIs(t, err, boom)

	src := filepath.Join(root, "epoch1d")
	restored, err := os.ReadFile(filepath.Join(src, makefile.Name))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(makefileTemplate, 1), string(restored))
	assert.NoFileExists(t, filepath.Join(src, makefile.BackupName))
	assert.Len(t, runner.Commands, 1, "clean must not run after a failed build")
}

func TestBuild_RealMake(t *testing.T) {
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not installed")
	}
	root := mockEpochDir(t)

	exe, err := New().Build(context.Background(), Options{EpochDir: root, Dims: 3, Photons: true})
	require.NoError(t, err)

	text, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Contains(t, string(text), "DPHOTONS")
	assert.NotContains(t, string(text), "DMORE_PHOTONS")
	assert.NoFileExists(t, filepath.Join(root, "epoch3d", "bin", "epoch3d"))
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o755))

	require.NoError(t, move(src, dst))
	assert.NoFileExists(t, src)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
