// This file defines the configuration structure for the console.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port    int `mapstructure:"port"`
	Backend struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"backend"`
	Tracker struct {
		RefreshInterval time.Duration `mapstructure:"refresh_interval"`
		MaxParallel     int           `mapstructure:"max_parallel"`
	} `mapstructure:"tracker"`
	Poll struct {
		Interval time.Duration `mapstructure:"interval"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"poll"`
	Preview struct {
		RequestSize int `mapstructure:"request_size"`
		PageSize    int `mapstructure:"page_size"`
		MaxPages    int `mapstructure:"max_pages"`
		CacheSize   int `mapstructure:"cache_size"`
	} `mapstructure:"preview"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Inbox struct {
		Path      string        `mapstructure:"path"`
		InferOnly bool          `mapstructure:"infer_only"`
		Debounce  time.Duration `mapstructure:"debounce"`
	} `mapstructure:"inbox"`
	Downloads struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"downloads"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")

	// CNE_BACKEND_BASE_URL overrides backend.base_url, and so on.
	v.SetEnvPrefix("CNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration used when no file or env is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8090)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("tracker.refresh_interval", "5s")
	v.SetDefault("tracker.max_parallel", 8)
	v.SetDefault("poll.interval", "1.5s")
	v.SetDefault("poll.timeout", "60s")
	v.SetDefault("preview.request_size", 500)
	v.SetDefault("preview.page_size", 50)
	v.SetDefault("preview.max_pages", 1000)
	v.SetDefault("preview.cache_size", 16)
	v.SetDefault("database.path", "./cne-console.db")
	v.SetDefault("inbox.path", "")
	v.SetDefault("inbox.infer_only", false)
	v.SetDefault("inbox.debounce", "2s")
	v.SetDefault("downloads.path", "./downloads")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
