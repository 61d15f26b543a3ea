// Package config loads server configuration from an optional env file
// plus the process environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server settings. LLM provider settings live in the
// llm package and are discovered separately.
type Config struct {
	ListenAddr  string   `mapstructure:"LISTEN_ADDR"`
	DBPath      string   `mapstructure:"DB_PATH"`
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

// Load reads configuration from app.env in path (if present) and the
// environment. Environment variables win over file values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("DB_PATH", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CORS_ORIGINS", []string{"http://localhost:5173"})

	v.AutomaticEnv()
	for _, key := range []string{"LISTEN_ADDR", "DB_PATH", "JWT_SECRET", "CORS_ORIGINS"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, the environment carries the settings.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks settings the server cannot run without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
