package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/arnavshah/osc-matching-api/pkg/matching"
	"gopkg.in/yaml.v3"
)

// Config contains runtime settings for the API server
type Config struct {
	Port          string
	GinMode       string
	LogLevel      string
	DatabaseURL   string // Postgres; takes precedence over DataPath
	DataPath      string // SQLite file
	JWTSecret     string
	MasterSecret  string
	AdminUsername string
	AdminPassword string
	WeightsFile   string
	Weights       matching.ScoreWeights
}

// weightsFile mirrors matching.ScoreWeights with optional fields so a file
// can override only some of the defaults.
type weightsFile struct {
	Affirm  partialWeights `yaml:"affirm"`
	Detract partialWeights `yaml:"detract"`
}

type partialWeights struct {
	Gender    *int `yaml:"gender"`
	Campus    *int `yaml:"campus"`
	Day       *int `yaml:"day"`
	Time      *int `yaml:"time"`
	DayTime   *int `yaml:"day_time"`
	Selection *int `yaml:"selection"`
}

// Load populates config from environment variables
func Load() (Config, error) {
	cfg := Config{
		Port:          "8000",
		LogLevel:      "info",
		DataPath:      "osc_matching.db",
		AdminUsername: "admin",
		AdminPassword: "admin123",
		Weights:       matching.DefaultWeights(),
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATA_PATH"); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		cfg.AdminUsername = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}
	cfg.GinMode = os.Getenv("GIN_MODE")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.MasterSecret = os.Getenv("API_MASTER_SECRET")
	cfg.WeightsFile = os.Getenv("WEIGHTS_FILE")

	var errs []error
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("missing required environment variable: JWT_SECRET"))
	}
	if cfg.MasterSecret == "" {
		errs = append(errs, errors.New("missing required environment variable: API_MASTER_SECRET"))
	}

	if cfg.WeightsFile != "" {
		w, err := LoadWeights(cfg.WeightsFile, cfg.Weights)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Weights = w
		}
	}

	return cfg, errors.Join(errs...)
}

// LoadWeights reads a YAML weights file and applies it on top of base
func LoadWeights(path string, base matching.ScoreWeights) (matching.ScoreWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read weights file: %w", err)
	}
	return ParseWeights(data, base)
}

// ParseWeights applies YAML weight overrides on top of base
func ParseWeights(data []byte, base matching.ScoreWeights) (matching.ScoreWeights, error) {
	var wf weightsFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return base, fmt.Errorf("config: parse weights: %w", err)
	}
	out := base
	wf.Affirm.apply(&out.Affirm)
	wf.Detract.apply(&out.Detract)
	return out, nil
}

func (p partialWeights) apply(w *matching.Weights) {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&w.Gender, p.Gender)
	set(&w.Campus, p.Campus)
	set(&w.Day, p.Day)
	set(&w.Time, p.Time)
	set(&w.DayTime, p.DayTime)
	set(&w.Selection, p.Selection)
}
