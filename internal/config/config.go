package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel   string   `mapstructure:"log_level"`
	LogFormat  string   `mapstructure:"log_format"`
	Jobs       int      `mapstructure:"jobs"`
	Database   string   `mapstructure:"database"`
	VerifyData bool     `mapstructure:"verify_data"`
	S3         S3Config `mapstructure:"s3"`
}

// S3Config holds the object store settings used for s3:// map arguments
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

// Load initializes and loads configuration from file
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("jobs", 1)
	v.SetDefault("database", "")
	v.SetDefault("verify_data", false)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.secure", true)

	// TWMAP_S3_SECRET_KEY and friends
	v.SetEnvPrefix("twmap")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Config file handling
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName("twmap")
		v.SetConfigType("yaml")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
