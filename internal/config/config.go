package config

import (
	"fmt"

	"github.com/plasmafair/epochctl/internal/build"
	"github.com/plasmafair/epochctl/internal/launch"
)

type Config struct {
	Docker      DockerConfig
	Singularity SingularityConfig
	Build       BuildConfig
	Run         RunConfig
	Log         LogConfig
	UI          UIConfig
}

type DockerConfig struct {
	Container string
}

type SingularityConfig struct {
	Container  string
	Entrypoint string
	NProcs     int
}

type BuildConfig struct {
	Compiler string
	// EpochDir is the EPOCH checkout; empty means the working directory.
	EpochDir string
}

type RunConfig struct {
	// BinDir holds the installed executables; empty means PATH lookup.
	BinDir string
}

type LogConfig struct {
	Level string
	JSON  bool
}

type UIConfig struct {
	NoColor bool
}

func defaults() Config {
	return Config{
		Docker: DockerConfig{
			Container: launch.DefaultDockerContainer,
		},
		Singularity: SingularityConfig{
			Container:  launch.DefaultSingularityContainer,
			Entrypoint: launch.DefaultSingularityEntry,
			NProcs:     1,
		},
		Build: BuildConfig{
			Compiler: build.DefaultCompiler,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration from the TOML config file and environment
// variables.
//
// The file lives at $EPOCH_CONFIG if set, otherwise at
// $XDG_CONFIG_HOME/epochctl/config.toml. A missing file is not an error.
//
// Environment variables (EPOCH_*) override file values.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Singularity.NProcs < 1 {
		return Config{}, fmt.Errorf("invalid config: singularity.nprocs must be at least 1, got %d", cfg.Singularity.NProcs)
	}

	return cfg, nil
}
