// Package config loads skillquest settings from an optional YAML file,
// SKILLQUEST_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FileName is the config file name searched for without an explicit path.
const FileName = "skillquest"

type Config struct {
	Learner    string `mapstructure:"learner" validate:"required"`
	DB         string `mapstructure:"db"`
	CacheDir   string `mapstructure:"cache_dir"`
	RoadmapDir string `mapstructure:"roadmap_dir"`

	API     APIConfig     `mapstructure:"api"`
	Quest   QuestConfig   `mapstructure:"quest"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Source is the config file that was read, if any.
	Source string `mapstructure:"-"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit float64       `mapstructure:"rate_limit" validate:"min=0"`
	Burst     int           `mapstructure:"burst" validate:"min=0"`
}

type QuestConfig struct {
	PassScore      int `mapstructure:"pass_score" validate:"min=0,max=100"`
	FinalPassScore int `mapstructure:"final_pass_score" validate:"min=0,max=100"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("learner", defaultLearner())
	v.SetDefault("db", "")
	v.SetDefault("cache_dir", "")
	v.SetDefault("roadmap_dir", "")

	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 1)

	v.SetDefault("quest.pass_score", 70)
	v.SetDefault("quest.final_pass_score", 70)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("metrics.textfile", "")
}

func defaultLearner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "learner"
}

// Load reads configuration. An explicit path must exist; otherwise
// skillquest.yaml is looked up in the user config directory and its
// absence is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SKILLQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// configDir returns $XDG_CONFIG_HOME/skillquest or ~/.config/skillquest.
func configDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "skillquest"), nil
}

// CachePath returns the badger directory: cache_dir when set, otherwise a
// cache directory next to the database.
func (c *Config) CachePath(dbPath string) string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(filepath.Dir(dbPath), "cache")
}
