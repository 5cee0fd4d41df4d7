package ui

import "github.com/caarlos0/env/v11"

// Config contains TUI-specific configuration.
type Config struct {
	// Directory speech audio is written to
	OutputDir string `env:"SHEETCRUD_OUTPUT_DIR"`

	// For debugging the UI
	AltScreen bool `env:"SHEETCRUD_ALT_SCREEN" envDefault:"true"`
}

// ConfigFromEnv overlays environment variables on cfg
func ConfigFromEnv(cfg Config) (Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return cfg, nil
}
