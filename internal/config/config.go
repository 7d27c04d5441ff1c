package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Auth struct {
		// One secret per credential namespace; they must differ so a token
		// minted for one namespace can never verify in another.
		StudentSecret    string `yaml:"studentSecret"`
		InstructorSecret string `yaml:"instructorSecret"`
		AttemptSecret    string `yaml:"attemptSecret"`
		LoginTTL         string `yaml:"loginTtl"`
		AttemptTTL       string `yaml:"attemptTtl"`
	} `yaml:"auth"`
	Exam struct {
		CacheTTL string `yaml:"cacheTtl"`
	} `yaml:"exam"`
	Documents struct {
		URL string `yaml:"url"`
	} `yaml:"documents"`
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

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
