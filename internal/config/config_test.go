package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(nil)
	if err != nil {
		t.Fatalf("parse(nil) error: %v", err)
	}
	if cfg.Inputs.Mapping != "mapping_file.csv" {
		t.Errorf("default mapping = %q", cfg.Inputs.Mapping)
	}
	if cfg.Inputs.Items != "Item-Tabel 1.csv" {
		t.Errorf("default items = %q", cfg.Inputs.Items)
	}
	if cfg.Output.Dir != "data" {
		t.Errorf("default output dir = %q", cfg.Output.Dir)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Server.CacheEntries != 8 {
		t.Errorf("default cache entries = %d", cfg.Server.CacheEntries)
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
inputs:
  responses: survey.csv
output:
  dir: /tmp/out
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if cfg.Inputs.Responses != "survey.csv" {
		t.Errorf("responses = %q, expected survey.csv", cfg.Inputs.Responses)
	}
	// Untouched fields keep their defaults.
	if cfg.Inputs.Mapping != "mapping_file.csv" {
		t.Errorf("mapping = %q, expected default", cfg.Inputs.Mapping)
	}
	if cfg.Output.Dir != "/tmp/out" {
		t.Errorf("output dir = %q", cfg.Output.Dir)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := parse([]byte("inputs: [not a map")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestDefaultConfigYAMLParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("embedded default.yaml does not parse: %v", err)
	}
	if cfg.Inputs.Subdomains != "Subdomain-Tabel 1.csv" {
		t.Errorf("subdomains = %q", cfg.Inputs.Subdomains)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  dir: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("ResolveConfigPath error: %v", err)
	}
	if got != path {
		t.Errorf("resolved %q, expected %q", got, path)
	}

	if _, err := ResolveConfigPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for explicit missing path")
	}
}
