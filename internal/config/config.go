package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	// PromptsRoot is the directory every resolved path must stay inside.
	// Character data lives in <PromptsRoot>/<char_id>/.
	PromptsRoot string `yaml:"prompts_root"`
	// StorePath is the SQLite file holding persisted character variables.
	StorePath string `yaml:"store_path,omitempty"`
	// MainTemplate is the entry template relative to a character's base dir.
	MainTemplate string        `yaml:"main_template,omitempty"`
	Logging      LoggingConfig `yaml:"logging,omitempty"`
	// Kinds maps a character kind to variable overrides applied on top of
	// the base defaults when a character of that kind is created.
	Kinds map[string]map[string]interface{} `yaml:"kinds,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

const configFileName = "charscript.yaml"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		PromptsRoot:  "Prompts",
		StorePath:    filepath.Join(".charscript", "charscript.db"),
		MainTemplate: "main_template.txt",
		Logging:      LoggingConfig{Level: "info"},
	}
}

// Load reads the config file from path. When path is empty, the working
// directory is tried first, then the executable's directory; a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, candidate := range []string{
			configFileName,
			filepath.Join(getExecutableDir(), configFileName),
		} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.PromptsRoot == "" {
		cfg.PromptsRoot = "Prompts"
	}
	if cfg.MainTemplate == "" {
		cfg.MainTemplate = "main_template.txt"
	}
	return cfg, nil
}

// KindOverrides returns the variable overrides for a character kind, or nil
// when the kind has no entry.
func (c *Config) KindOverrides(kind string) map[string]interface{} {
	if c.Kinds == nil {
		return nil
	}
	return c.Kinds[kind]
}
