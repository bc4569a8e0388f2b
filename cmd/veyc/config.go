package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// driverConfig is veyc.yaml: the driver-level settings that aren't part of
// the language itself — where to look for input files named without a
// directory, the operator table to load (overridable by -ops), and which
// published function is the compilation root.
type driverConfig struct {
	Root        string   `yaml:"root"`
	SearchPaths []string `yaml:"search_paths"`
	Ops         string   `yaml:"ops"`
}

func defaultDriverConfig() driverConfig {
	return driverConfig{Root: "main"}
}

// loadDriverConfig reads path if present, filling in defaults for whatever
// it leaves unset. A missing file is not an error: veyc.yaml is optional,
// and the zero-config defaults (root "main", no extra search paths) are
// enough to compile a single file.
func loadDriverConfig(path string) (driverConfig, error) {
	cfg := defaultDriverConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading driver config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("driver config %s: %w", path, err)
	}
	if cfg.Root == "" {
		cfg.Root = "main"
	}
	return cfg, nil
}

// resolveSourcePath finds path as given, or under each of cfg's search
// paths in order, returning the first that exists. A path that exists as
// given (absolute, or relative to the working directory) is returned
// unchanged; one that does not is tried under each search path, even if
// it is absolute.
func resolveSourcePath(cfg driverConfig, path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	for _, dir := range cfg.SearchPaths {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("source file %q not found (search paths: %v)", path, cfg.SearchPaths)
}
