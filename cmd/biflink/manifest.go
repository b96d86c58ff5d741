package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// projectConfig is the biflink.toml schema. Everything is optional; flags
// given on the command line win over the manifest.
type projectConfig struct {
	Library libraryConfig    `toml:"library"`
	Output  outputConfig     `toml:"output"`
	Flags   map[string]int64 `toml:"flags"`
}

type libraryConfig struct {
	Path string `toml:"path"`
}

type outputConfig struct {
	Path string `toml:"path"`
}

// findManifest walks upward from startDir looking for biflink.toml.
func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "biflink.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// loadManifest reads the manifest above startDir if one exists.
func loadManifest(startDir string) (projectConfig, bool, error) {
	var cfg projectConfig
	path, found, err := findManifest(startDir)
	if err != nil || !found {
		return cfg, false, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, false, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return cfg, true, nil
}
