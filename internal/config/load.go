package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the Trinity configuration file.
const ConfigFileName = "trinity.toml"

// FindConfigFile walks up from startDir looking for trinity.toml. It returns
// the absolute path to the first match, or an empty string when no file
// exists between startDir and the filesystem root.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("config: resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadFromFile parses the TOML file at path. The returned metadata exposes
// undecoded keys for the validator.
func LoadFromFile(path string) (*Config, toml.MetaData, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, md, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return &cfg, md, nil
}

// Load assembles the effective configuration for startDir: defaults, then
// the nearest trinity.toml, then TRINITY_* environment variables. The second
// return value is the config file path, empty when running on pure defaults.
func Load(startDir string) (*Config, string, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		return nil, "", err
	}

	var fileCfg *Config
	var md toml.MetaData
	if path != "" {
		fileCfg, md, err = LoadFromFile(path)
		if err != nil {
			return nil, path, err
		}
	}

	cfg := Merge(NewDefaults(), fileCfg)
	ApplyEnv(cfg, os.LookupEnv)
	expandPaths(cfg)

	if vr := Validate(cfg, &md); vr.HasErrors() {
		return nil, path, fmt.Errorf("config: %s", vr.Errors()[0].String())
	}
	return cfg, path, nil
}

// LoadExplicit is Load for a caller-supplied file path. Unlike Load, a
// missing file is an error.
func LoadExplicit(path string) (*Config, error) {
	fileCfg, md, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Merge(NewDefaults(), fileCfg)
	ApplyEnv(cfg, os.LookupEnv)
	expandPaths(cfg)

	if vr := Validate(cfg, &md); vr.HasErrors() {
		return nil, fmt.Errorf("config: %s", vr.Errors()[0].String())
	}
	return cfg, nil
}

// expandPaths resolves a leading "~" in the directory settings.
func expandPaths(cfg *Config) {
	cfg.Core.MemoryDir = ExpandHome(cfg.Core.MemoryDir)
	cfg.Core.ReposDir = ExpandHome(cfg.Core.ReposDir)
}

// ExpandHome replaces a leading "~" or "~/" with the user home directory.
// The path is returned untouched when the home directory cannot be resolved.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
