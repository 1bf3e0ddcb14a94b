package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExplicitPath(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "charscript.yaml")
	content := `prompts_root: /srv/prompts
store_path: /srv/state/chars.db
main_template: entry.txt
logging:
  level: debug
  file: /var/log/charscript.log
kinds:
  guard:
    attitude: 30
    available_action_level: 2
  merchant:
    attitude: 75
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PromptsRoot != "/srv/prompts" {
		t.Fatalf("prompts_root = %q", cfg.PromptsRoot)
	}
	if cfg.StorePath != "/srv/state/chars.db" {
		t.Fatalf("store_path = %q", cfg.StorePath)
	}
	if cfg.MainTemplate != "entry.txt" {
		t.Fatalf("main_template = %q", cfg.MainTemplate)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File != "/var/log/charscript.log" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}

	guard := cfg.KindOverrides("guard")
	if guard == nil {
		t.Fatalf("expected guard overrides")
	}
	if guard["attitude"] != 30 {
		t.Fatalf("guard attitude = %#v", guard["attitude"])
	}
	if cfg.KindOverrides("dragon") != nil {
		t.Fatalf("expected nil for unknown kind")
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit path")
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "charscript.yaml")
	if err := os.WriteFile(cfgPath, []byte("store_path: x.db\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PromptsRoot != "Prompts" {
		t.Fatalf("prompts_root = %q", cfg.PromptsRoot)
	}
	if cfg.MainTemplate != "main_template.txt" {
		t.Fatalf("main_template = %q", cfg.MainTemplate)
	}
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "charscript.yaml")
	if err := os.WriteFile(cfgPath, []byte(":\n  - bad\n :"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PromptsRoot != "Prompts" || cfg.MainTemplate != "main_template.txt" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default log level = %q", cfg.Logging.Level)
	}
}
