// Package config holds the settings shared by the pgdelta commands.
//
// Settings are read from an optional YAML file, then overridden by
// PGDELTA_* environment variables. Command line flags take precedence
// over both, which is up to the caller.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/schemalex/pgdelta/internal/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to the env tag of every field
const EnvPrefix = "PGDELTA_"

type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// diff
	Transaction    bool     `yaml:"transaction" env:"TRANSACTION"`
	Schemas        []string `yaml:"schemas" env:"SCHEMAS"`
	ExcludeSchemas []string `yaml:"exclude_schemas" env:"EXCLUDE_SCHEMAS"`
	Ignored        bool     `yaml:"ignored" env:"IGNORED"`
	Charset        string   `yaml:"charset" env:"CHARSET"`

	// deploy
	VersionTable string `yaml:"version_table" env:"VERSION_TABLE"`
}

// Default returns the settings used when nothing else is configured
func Default() *Config {
	return &Config{
		LogLevel:     "warn",
		Transaction:  true,
		Charset:      "UTF-8",
		VersionTable: "pgdelta_version",
	}
}

// Load reads the YAML file at path, if path is not empty, and applies
// the environment on top of it
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, `failed to open config file %s`, path)
		}
		defer f.Close()

		if err := cfg.decode(f); err != nil {
			return nil, errors.Wrapf(err, `failed to read config file %s`, path)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, `failed to read config from environment`)
	}
	return cfg, nil
}

func (c *Config) decode(src io.Reader) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return err
	}
	if buf.Len() == 0 {
		return nil
	}

	dec := yaml.NewDecoder(&buf)
	dec.KnownFields(true)
	return dec.Decode(c)
}
