package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	xlog "github.com/plasmafair/epochctl/internal/log"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	// check validates a value before config set writes it.
	check   func(string) error
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "docker.container", typ: kString, env: "EPOCH_DOCKER_CONTAINER",
		apply:   func(cfg *Config, v any) { cfg.Docker.Container = v.(string) },
		extract: func(cfg Config) any { return cfg.Docker.Container },
	},
	{
		key: "singularity.container", typ: kString, env: "EPOCH_SINGULARITY_CONTAINER",
		apply:   func(cfg *Config, v any) { cfg.Singularity.Container = v.(string) },
		extract: func(cfg Config) any { return cfg.Singularity.Container },
	},
	{
		key: "singularity.entrypoint", typ: kString, env: "EPOCH_SINGULARITY_ENTRYPOINT",
		apply:   func(cfg *Config, v any) { cfg.Singularity.Entrypoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Singularity.Entrypoint },
	},
	{
		key: "singularity.nprocs", typ: kInt, env: "EPOCH_SINGULARITY_NPROCS",
		apply:   func(cfg *Config, v any) { cfg.Singularity.NProcs = v.(int) },
		extract: func(cfg Config) any { return cfg.Singularity.NProcs },
	},
	{
		key: "build.compiler", typ: kString, env: "EPOCH_BUILD_COMPILER",
		apply:   func(cfg *Config, v any) { cfg.Build.Compiler = v.(string) },
		extract: func(cfg Config) any { return cfg.Build.Compiler },
	},
	{
		key: "build.epoch_dir", typ: kString, env: "EPOCH_BUILD_EPOCH_DIR",
		apply:   func(cfg *Config, v any) { cfg.Build.EpochDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Build.EpochDir },
	},
	{
		key: "run.bin_dir", typ: kString, env: "EPOCH_RUN_BIN_DIR",
		apply:   func(cfg *Config, v any) { cfg.Run.BinDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Run.BinDir },
	},
	{
		key: "log.level", typ: kString, env: "EPOCH_LOG_LEVEL",
		check:   checkLevel,
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.json", typ: kBool, env: "EPOCH_LOG_JSON",
		apply:   func(cfg *Config, v any) { cfg.Log.JSON = v.(bool) },
		extract: func(cfg Config) any { return cfg.Log.JSON },
	},
	{
		key: "ui.no_color", typ: kBool, env: "EPOCH_NO_COLOR",
		apply:   func(cfg *Config, v any) { cfg.UI.NoColor = v.(bool) },
		extract: func(cfg Config) any { return cfg.UI.NoColor },
	},
}

func checkLevel(v string) error {
	_, err := zerolog.ParseLevel(v)
	return err
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	logger := xlog.WithComponent("config")
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					logger.Warn().Err(err).Str("key", s.key).Str("value", v).Msg("could not parse bool, using default value")
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	logger := xlog.WithComponent("config")
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				logger.Warn().Err(err).Str("env", s.env).Str("value", raw).Msg("could not parse integer, using default value")
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				logger.Warn().Err(err).Str("env", s.env).Str("value", raw).Msg("could not parse bool, using default value")
			}
		}
	}
}
