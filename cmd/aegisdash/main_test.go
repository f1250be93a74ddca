package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  base_url: http://10.0.0.5:5000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	configFile, backendURL = path, ""
	defer func() { configFile, backendURL = "", "" }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:5000" {
		t.Errorf("Expected file base URL, got %s", cfg.Backend.BaseURL)
	}

	backendURL = "http://backend:9000/"
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend:9000" {
		t.Errorf("Expected flag base URL, got %s", cfg.Backend.BaseURL)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	configFile, backendURL = "", "not a url"
	defer func() { backendURL = "" }()

	if _, err := loadConfig(); err == nil {
		t.Error("Expected validation error")
	}

	configFile, backendURL = filepath.Join(t.TempDir(), "missing.yaml"), ""
	defer func() { configFile = "" }()
	if _, err := loadConfig(); err == nil {
		t.Error("Expected load error")
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := map[string]string{
		":8090":          "localhost:8090",
		"127.0.0.1:8090": "127.0.0.1:8090",
	}
	for in, want := range tests {
		if got := displayAddr(in); got != want {
			t.Errorf("displayAddr(%q) = %q, expected %q", in, got, want)
		}
	}
}
