// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

// Package config reads trace filter settings from a TOML file:
//
//	# fragments of paths to profile, matched as substrings
//	entries = ["src/myapp", "tools.py"]
//	# files resolving into this directory are profiled too
//	base_path = "/home/user/myapp"
//	profile_all = false
//	# number of canonical paths to remember, 0 disables the cache
//	cache_size = 4096
//	log_level = "warn"
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrNoBasePath is returned when the configuration does not specify the base path
var ErrNoBasePath = errors.New("base_path is required")

// Config holds the settings used to build a trace filter
type Config struct {
	Entries    []string `toml:"entries"`
	BasePath   string   `toml:"base_path"`
	ProfileAll bool     `toml:"profile_all"`
	// CacheSize is nil when not set in the file
	CacheSize *uint32 `toml:"cache_size"`
	LogLevel  string  `toml:"log_level"`
}

// Load reads and validates the configuration file at path
func Load(path string) (Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer fd.Close()

	cfg, err := Decode(fd)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Decode reads and validates a configuration. Keys not described by Config are rejected.
func Decode(r io.Reader) (Config, error) {
	var cfg Config

	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("malformed config: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the configuration can be used to build a trace filter
func (c Config) Validate() error {
	if c.BasePath == "" {
		return ErrNoBasePath
	}

	return nil
}
