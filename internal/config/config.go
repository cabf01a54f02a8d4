package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ewanmck/rentscout/pkg/geo"
	"github.com/ewanmck/rentscout/pkg/score"
)

// Config is the root configuration.
type Config struct {
	Database        DatabaseConfig       `yaml:"database"`
	ReferencePoints []geo.ReferencePoint `yaml:"reference_points"`
	Scoring         ScoringConfig        `yaml:"scoring"`
	Cleaning        score.Cleaning       `yaml:"cleaning"`
	Geocode         GeocodeConfig        `yaml:"geocode"`
	Routes          RoutesConfig         `yaml:"routes"`
	Scrape          ScrapeConfig         `yaml:"scrape"`
	Server          ServerConfig         `yaml:"server"`
	Logging         LoggingConfig        `yaml:"logging"`
	RunLogDir       string               `yaml:"run_log_dir"`
}

// DatabaseConfig configures the SQLite lookup cache.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScoringConfig selects the scoring mode and optionally overrides the
// built-in weight table for it. Penalties always apply.
type ScoringConfig struct {
	Mode      string           `yaml:"mode"`
	Weights   *score.Weights   `yaml:"weights"`
	Penalties *score.Penalties `yaml:"penalties"`
}

// ResolveWeights returns the explicit weight table when one is
// configured, otherwise the built-in table for the mode.
func (s ScoringConfig) ResolveWeights() (score.Weights, error) {
	mode, err := score.ParseMode(s.Mode)
	if err != nil {
		return score.Weights{}, err
	}
	if s.Weights != nil {
		return *s.Weights, nil
	}
	return score.DefaultWeights(mode), nil
}

// ResolvePenalties returns the configured penalty constants, or the
// defaults when the section is absent.
func (s ScoringConfig) ResolvePenalties() score.Penalties {
	if s.Penalties != nil {
		return *s.Penalties
	}
	return score.DefaultPenalties()
}

// GeocodeConfig configures the Nominatim fallback geocoder.
type GeocodeConfig struct {
	URL       string `yaml:"url"`
	UserAgent string `yaml:"user_agent"`
}

// RoutesConfig configures the distance-matrix routing backend. With no
// API key the enricher falls back to geocoding plus straight-line
// distance.
type RoutesConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	BatchSize int    `yaml:"batch_size"`
}

// ScrapeConfig configures the listing scraper.
type ScrapeConfig struct {
	UserAgent string `yaml:"user_agent"`
	MaxPages  int    `yaml:"max_pages"`
}

// ServerConfig configures the HTTP results server.
type ServerConfig struct {
	Port       int    `yaml:"port"`
	ResultsDir string `yaml:"results_dir"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults: Edinburgh and Glasgow
// city centers, full scoring mode, cleaning enabled.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./rentscout.db"},
		ReferencePoints: []geo.ReferencePoint{
			{Name: "edinburgh", Lat: 55.9533, Lng: -3.1883},
			{Name: "glasgow", Lat: 55.8642, Lng: -4.2518},
		},
		Scoring:  ScoringConfig{Mode: string(score.ModeFull)},
		Cleaning: score.DefaultCleaning(),
		Geocode: GeocodeConfig{
			URL:       geo.DefaultNominatimURL,
			UserAgent: "rentscout/0.1",
		},
		Routes: RoutesConfig{
			Endpoint:  geo.DefaultRoutesEndpoint,
			BatchSize: 25,
		},
		Scrape: ScrapeConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
			MaxPages:  5,
		},
		Server: ServerConfig{
			Port:       8080,
			ResultsDir: ".",
		},
		Logging:   LoggingConfig{Level: "info"},
		RunLogDir: "./runs",
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.ReferencePoints) != 2 {
		return fmt.Errorf("config: need exactly 2 reference points, got %d", len(c.ReferencePoints))
	}
	if c.ReferencePoints[0].Name == c.ReferencePoints[1].Name {
		return fmt.Errorf("config: reference points must have distinct names")
	}
	if _, err := score.ParseMode(c.Scoring.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RENTSCOUT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RENTSCOUT_MODE"); v != "" {
		cfg.Scoring.Mode = v
	}
	if v := os.Getenv("ROUTES_API_KEY"); v != "" {
		cfg.Routes.APIKey = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Routes.APIKey = v
	}
	if v := os.Getenv("NOMINATIM_URL"); v != "" {
		cfg.Geocode.URL = v
	}
	if v := os.Getenv("RENTSCOUT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
