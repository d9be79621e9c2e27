package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds the knobs for the API server and the worker.
// Credentials stay in the environment (see the env-backed configs in
// this package); this file only carries operational settings.
type ServiceConfig struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Worker struct {
		Concurrency int            `yaml:"concurrency"`
		Queues      map[string]int `yaml:"queues"`
	} `yaml:"worker"`

	Storage struct {
		Type string `yaml:"type"` // "minio" or "s3"
	} `yaml:"storage"`

	Slides struct {
		MaxUploadSize   int64         `yaml:"maxUploadSize"`
		RetentionPeriod time.Duration `yaml:"retentionPeriod"`
	} `yaml:"slides"`
}

// DefaultServiceConfig returns the configuration used when no yaml
// file is provided.
func DefaultServiceConfig() *ServiceConfig {
	cfg := &ServiceConfig{}
	cfg.Server.Addr = ":8080"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Worker.Concurrency = 4
	cfg.Worker.Queues = map[string]int{
		"critical": 6,
		"default":  3,
		"low":      1,
	}
	cfg.Storage.Type = "minio"
	cfg.Slides.MaxUploadSize = 8 << 30 // whole-slide images are large
	cfg.Slides.RetentionPeriod = 24 * time.Hour
	return cfg
}

// LoadServiceConfig reads a yaml config file, falling back to defaults
// for anything the file leaves out. An empty path returns defaults.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	cfg := DefaultServiceConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
