// Package config handles loader configuration loading and management.
package config

// Config holds all loader settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Loader  LoaderConfig  `yaml:"loader"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds game data file locations.
type DataConfig struct {
	// Manifest is the top-level data file listing IDE/IPL/COL entries.
	Manifest string `yaml:"manifest"`
	// DataDir is the directory resource paths in the manifest are
	// relative to.
	DataDir string `yaml:"data_dir"`
	// ImgPaths are resource container archives, searched in order.
	// Later archives override earlier ones.
	ImgPaths []string `yaml:"img_paths"`
}

// LoaderConfig holds pipeline behaviour settings.
type LoaderConfig struct {
	// Workers bounds the number of concurrent decode goroutines.
	// Zero means one worker per CPU.
	Workers int `yaml:"workers"`
	// RequireNonEmpty makes a world with zero entities a build error.
	RequireNonEmpty bool `yaml:"require_non_empty"`
	// LODCutoff is the draw distance above which a definition is
	// treated as a far-LOD stand-in and its placements skipped.
	LODCutoff float32 `yaml:"lod_cutoff"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Manifest: "data/game.dat",
			DataDir:  ".",
			ImgPaths: []string{"models/gta3.img"},
		},
		Loader: LoaderConfig{
			Workers:         0,
			RequireNonEmpty: false,
			LODCutoff:       299.0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
