package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Data.Manifest != "data/game.dat" {
		t.Errorf("wrong default manifest: %q", cfg.Data.Manifest)
	}
	if len(cfg.Data.ImgPaths) == 0 {
		t.Error("expected at least one default archive path")
	}
	if cfg.Loader.LODCutoff != 299.0 {
		t.Errorf("wrong default LOD cutoff: %v", cfg.Loader.LODCutoff)
	}
	if cfg.Loader.RequireNonEmpty {
		t.Error("empty worlds should be allowed by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("wrong default log level: %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `data:
  manifest: custom/game.dat
loader:
  workers: 4
  lod_cutoff: 150.0
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Data.Manifest != "custom/game.dat" {
		t.Errorf("manifest not overridden: %q", cfg.Data.Manifest)
	}
	if cfg.Loader.Workers != 4 {
		t.Errorf("workers not overridden: %d", cfg.Loader.Workers)
	}
	if cfg.Loader.LODCutoff != 150.0 {
		t.Errorf("lod cutoff not overridden: %v", cfg.Loader.LODCutoff)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level not overridden: %q", cfg.Logging.Level)
	}

	// Untouched keys keep their defaults.
	if cfg.Data.DataDir != "." {
		t.Errorf("data dir should keep its default, got %q", cfg.Data.DataDir)
	}
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := loadFromFile(Default(), path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Data.Manifest = "saved/game.dat"
	cfg.Loader.Workers = 8
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Data.Manifest != "saved/game.dat" || loaded.Loader.Workers != 8 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestConfigDir(t *testing.T) {
	if ConfigDir() == "" {
		t.Error("expected a config directory on every platform")
	}
}
