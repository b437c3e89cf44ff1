package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagManifest = flag.String("manifest", "", "Path to the data manifest")
	flagDataDir  = flag.String("datadir", "", "Game data directory")
	flagWorkers  = flag.Int("workers", 0, "Decode worker count (0 = per CPU)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagManifest != "" {
		cfg.Data.Manifest = *flagManifest
	}
	if *flagDataDir != "" {
		cfg.Data.DataDir = *flagDataDir
	}
	if *flagWorkers > 0 {
		cfg.Loader.Workers = *flagWorkers
	}
}
