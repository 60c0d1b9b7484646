package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

// Config holds high-level settings required across the application. Values
// come from defaults, then an optional YAML file, then environment overrides.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Cache         CacheConfig         `yaml:"cache"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Refresh       RefreshConfig       `yaml:"refresh"`
	Logging       LoggingConfig       `yaml:"logging"`
	Signals       SignalsConfig       `yaml:"signals"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen" env:"SIGNALBOARD_LISTEN" validate:"required"`
}

// CacheConfig locates the persisted signal cache.
type CacheConfig struct {
	Path string `yaml:"path" env:"SIGNALBOARD_CACHE_PATH" validate:"required"`
}

// SubscriptionsConfig locates the SQLite subscription database.
type SubscriptionsConfig struct {
	Path string `yaml:"path" env:"SIGNALBOARD_SUBSCRIPTIONS_PATH" validate:"required"`
}

// RefreshConfig controls the optional background refresh loop. Cron takes
// precedence over Interval when both are set.
type RefreshConfig struct {
	Background bool          `yaml:"background" env:"SIGNALBOARD_REFRESH_BACKGROUND"`
	Interval   time.Duration `yaml:"interval" env:"SIGNALBOARD_REFRESH_INTERVAL"`
	Cron       string        `yaml:"cron" env:"SIGNALBOARD_REFRESH_CRON"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level string `yaml:"level" env:"SIGNALBOARD_LOG_LEVEL" validate:"required"`
	Human bool   `yaml:"human" env:"SIGNALBOARD_LOG_HUMAN"`
}

// SignalsConfig carries per-signal settings so implementations do no
// environment reads of their own at fetch time.
type SignalsConfig struct {
	DogWalkBaseURL       string        `yaml:"dogwalk_base_url" env:"DOGWALK_BASE_URL"`
	MedCheckBaseURL      string        `yaml:"medcheck_base_url" env:"MEDCHECK_BASE_URL"`
	MedCheckBadWithin    time.Duration `yaml:"medcheck_bad_within" env:"MEDCHECK_BAD_WITHIN"`
	ServiceHealthBaseURL string        `yaml:"service_health_base_url" env:"WEBHOOK_ROUTER_BASE_URL"`
	RepoPath             string        `yaml:"repo_path" env:"PORTFOLIO_REPO_PATH"`
	GitHubOwner          string        `yaml:"github_owner" env:"GITHUB_OWNER"`
	GitHubRepo           string        `yaml:"github_repo" env:"GITHUB_REPO"`
	GitHubToken          string        `yaml:"github_token" env:"GITHUB_TOKEN"`
	CommitWarnDays       int           `yaml:"commit_warn_days" env:"PORTFOLIO_WARN_DAYS"`
	CommitBadDays        int           `yaml:"commit_bad_days" env:"PORTFOLIO_BAD_DAYS"`
	OllamaBaseURL        string        `yaml:"ollama_base_url" env:"OLLAMA_BASE_URL"`
	WisdomModel          string        `yaml:"wisdom_model" env:"WISDOM_MODEL"`
	WisdomTimezone       string        `yaml:"wisdom_timezone" env:"WISDOM_TZ"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:        ServerConfig{Listen: ":8990"},
		Cache:         CacheConfig{Path: "data/cache.json"},
		Subscriptions: SubscriptionsConfig{Path: "data/subscriptions.db"},
		Refresh:       RefreshConfig{Background: false, Interval: time.Minute},
		Logging:       LoggingConfig{Level: "info", Human: false},
		Signals: SignalsConfig{
			DogWalkBaseURL:       "http://localhost:5010",
			MedCheckBaseURL:      "http://apps.local:5055",
			MedCheckBadWithin:    2 * time.Hour,
			ServiceHealthBaseURL: "http://localhost:8080",
			CommitWarnDays:       7,
			CommitBadDays:        21,
			OllamaBaseURL:        "http://localhost:11434",
			WisdomModel:          "llama3",
			WisdomTimezone:       "America/Detroit",
		},
	}
}

// Load builds the effective configuration: defaults, overlaid with the YAML
// file at path when it exists, overlaid with environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, apperrors.NewPersistenceError("load", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, apperrors.NewValidationError("config", "invalid YAML: "+err.Error(), err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, apperrors.NewValidationError("config", "environment overrides: "+err.Error(), err)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate performs schema validation on the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return apperrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return apperrors.NewValidationError("config", err.Error(), err)
	}

	if cfg.Refresh.Background && cfg.Refresh.Cron == "" && cfg.Refresh.Interval <= 0 {
		return apperrors.NewValidationError("refresh", "background mode needs a cron expression or a positive interval", nil)
	}

	return nil
}
