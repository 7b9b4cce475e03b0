package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ModelsDir != "saved_models" {
		t.Errorf("Expected models dir 'saved_models', got %q", cfg.ModelsDir)
	}
	if cfg.Plot.Width != 600 || cfg.Plot.Height != 400 {
		t.Errorf("Expected 600x400 plot, got %dx%d", cfg.Plot.Width, cfg.Plot.Height)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	for _, want := range []string{"SINA SARFARAZI", "University of Naples “Parthenope”, ITALY", "sina.srfz@gmail.com"} {
		if !strings.Contains(cfg.Info, want) {
			t.Errorf("Expected information text to contain %q", want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moment-rotation.yaml")
	content := `
port: 9090
models_dir: /opt/models
plot:
  width: 800
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.ModelsDir != "/opt/models" {
		t.Errorf("Expected /opt/models, got %q", cfg.ModelsDir)
	}
	if cfg.Plot.Width != 800 || cfg.Plot.Height != 400 {
		t.Errorf("Expected 800x400 with default height, got %dx%d", cfg.Plot.Width, cfg.Plot.Height)
	}
	if cfg.Window.Title == "" {
		t.Error("Expected default window title to survive")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "port: [1, 2"},
		{"bad port", "port: 70000"},
		{"empty models dir", "models_dir: \"\""},
		{"bad rate", "rate_limit:\n  burst: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}
