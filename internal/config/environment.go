package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultKeywords is the keyword set used when none is configured.
var DefaultKeywords = []string{"video", "retrieval", "3d", "agent", "representation"}

type Config struct {
	Category         string
	Keywords         []string
	MaxResults       int
	AbstractMaxChars int
	UseProxy         bool
	CABundlePath     string
	BaseURL          string
	DBPath           string
	SlackWebhookURL  string
	Schedule         string
	LogLevel         string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("category", "cs.CV")
	v.SetDefault("keywords", DefaultKeywords)
	v.SetDefault("max_results", 50)
	v.SetDefault("abstract_max_chars", 320)
	v.SetDefault("use_proxy", false)
	v.SetDefault("ca_bundle", "")
	v.SetDefault("base_url", "https://export.arxiv.org/api/query")
	v.SetDefault("db_path", "data/arxiv.db")
	v.SetDefault("schedule", "0 8 * * *")
	v.SetDefault("log_level", "info")
}

// Load reads the optional JSON config file at path, then applies
// ARXIV_DIGEST_* environment overrides. envFile, when it exists, is loaded
// into the environment first; it is where SLACK_WEBHOOK_URL usually lives.
// A variable already set to a non-empty value wins over the env file.
// A missing config file or env file is not an error.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := loadEnvFile(envFile); err != nil {
			return Config{}, err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ARXIV_DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("slack_webhook_url", "SLACK_WEBHOOK_URL", "ARXIV_DIGEST_SLACK_WEBHOOK_URL"); err != nil {
		return Config{}, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	cfg := Config{
		Category:         strings.TrimSpace(v.GetString("category")),
		Keywords:         v.GetStringSlice("keywords"),
		MaxResults:       v.GetInt("max_results"),
		AbstractMaxChars: v.GetInt("abstract_max_chars"),
		UseProxy:         v.GetBool("use_proxy"),
		CABundlePath:     v.GetString("ca_bundle"),
		BaseURL:          v.GetString("base_url"),
		DBPath:           v.GetString("db_path"),
		SlackWebhookURL:  strings.TrimSpace(v.GetString("slack_webhook_url")),
		Schedule:         v.GetString("schedule"),
		LogLevel:         v.GetString("log_level"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Category == "" {
		return fmt.Errorf("%w: category must not be empty", ErrInvalidConfig)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("%w: max_results must be positive, got %d", ErrInvalidConfig, c.MaxResults)
	}
	if c.AbstractMaxChars < 1 {
		return fmt.Errorf("%w: abstract_max_chars must be positive, got %d", ErrInvalidConfig, c.AbstractMaxChars)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	return nil
}

// loadEnvFile exports the non-empty values in path for every variable that
// is unset or empty in the process environment.
func loadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	for key, value := range values {
		if value == "" || os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}
