package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bundle struct {
		TTL      string `yaml:"ttl"`
		BlobDir  string `yaml:"blob_dir"`
		MaxBytes int64  `yaml:"max_bytes"`
	} `yaml:"bundle"`
	Game struct {
		AdvanceDelay string `yaml:"advance_delay"`
	} `yaml:"game"`
	Proxy struct {
		Timeout  string `yaml:"timeout"`
		MaxBytes int64  `yaml:"max_bytes"`
	} `yaml:"proxy"`
	Leaderboard struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
