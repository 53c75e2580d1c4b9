package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config represents a luna.toml configuration file. Everything in it can
// also be set by flag; flags win.
type Config struct {
	Run   RunConfig   `toml:"run"`
	Cache CacheConfig `toml:"cache"`
}

// RunConfig configures execution behavior.
type RunConfig struct {
	Trace   bool `toml:"trace"`
	Disasm  bool `toml:"disasm"`
	Verbose bool `toml:"verbose"`
}

// CacheConfig configures the compile cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// loadConfig parses a luna.toml file. A missing file is not an error; the
// zero Config is returned.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	return &cfg, nil
}
