// Package config loads the screening configuration from a YAML file.
// Binaries layer environment overrides on top.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/orb/orbscreen/internal/astro"
)

// ScreeningConfig holds the sweep parameters.
type ScreeningConfig struct {
	WindowDays         float64 `yaml:"window_days"`
	CatalogWindowHours float64 `yaml:"catalog_window_hours"`
	ThresholdKm        float64 `yaml:"threshold_km"`
	StepMinutes        float64 `yaml:"step_minutes"`
	MaxAgeDays         float64 `yaml:"max_age_days"`
}

// SpaceTrackConfig holds credentials for the live catalog source.
type SpaceTrackConfig struct {
	BaseURL         string `yaml:"base_url"`
	Identity        string `yaml:"identity"`
	Password        string `yaml:"password"`
	EpochWithinDays int    `yaml:"epoch_within_days"`
}

// Config is the root configuration document.
type Config struct {
	CatalogFile string `yaml:"catalog_file"`
	CacheDir    string `yaml:"cache_dir"`
	Workers     int    `yaml:"workers"`
	MetricsAddr string `yaml:"metrics_addr"`

	Screening  ScreeningConfig  `yaml:"screening"`
	SpaceTrack SpaceTrackConfig `yaml:"spacetrack"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		CacheDir: os.TempDir() + "/orbscreen/catalog",
		Workers:  runtime.NumCPU(),
		Screening: ScreeningConfig{
			WindowDays:         astro.DefaultScreeningWindowDays,
			CatalogWindowHours: astro.DefaultCatalogWindowHours,
			ThresholdKm:        astro.DefaultMissDistanceKm,
			StepMinutes:        astro.DefaultStepMinutes,
		},
		SpaceTrack: SpaceTrackConfig{
			EpochWithinDays: 30,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
