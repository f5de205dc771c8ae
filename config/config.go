// Package config loads runtime configuration for the CLI and the REST
// glue from an optional file plus VELLUM_* environment overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	// MongoURI is the document-store connection string.
	MongoURI string
	// Database is the target database name.
	Database string
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
	// HTTPAddr is the REST listen address.
	HTTPAddr string
	// Collections is the allow-list of collections exposed over REST.
	Collections []string
	// Debug switches on development logging.
	Debug bool
}

// Load reads configuration from the given file (optional; any format
// viper understands) and the environment. Environment variables use the
// VELLUM_ prefix: VELLUM_MONGO_URI, VELLUM_DATABASE, and so on.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database", "vellum")
	v.SetDefault("connect_timeout", "10s")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("collections", []string{})
	v.SetDefault("debug", false)

	v.SetEnvPrefix("VELLUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		MongoURI:       v.GetString("mongo_uri"),
		Database:       v.GetString("database"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
		HTTPAddr:       v.GetString("http_addr"),
		Collections:    v.GetStringSlice("collections"),
		Debug:          v.GetBool("debug"),
	}, nil
}
