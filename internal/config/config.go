package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string
	// Debug enables debug-level logging regardless of environment
	Debug bool

	Storage StorageConfig
}

// StorageConfig selects and configures the content store backend.
// Loaded from the optional YAML overlay (see Load), env vars fill the gaps.
type StorageConfig struct {
	Disk      string   `yaml:"disk"` // "local" or "s3"
	LocalRoot string   `yaml:"local_root"`
	BaseURL   string   `yaml:"base_url"`
	S3        S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	KeyPrefix string `yaml:"key_prefix"`
	PublicURL string `yaml:"public_url"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		Debug:       getEnv("DEBUG", getDefaultDebug(env)) == "true",
		Storage: StorageConfig{
			Disk:      getEnv("STORAGE_DISK", "local"),
			LocalRoot: getEnv("STORAGE_ROOT", "./data/content"),
			BaseURL:   getEnv("STORAGE_BASE_URL", ""),
		},
	}

	// Optional YAML overlay for storage settings that are awkward as env vars
	if path := getEnv("CONFIG_FILE", "depot.yaml"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile merges an optional YAML file over the storage config.
// A missing file is fine; a malformed one is not.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var overlay struct {
		Storage StorageConfig `yaml:"storage"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overlay.Storage.Disk != "" {
		c.Storage.Disk = overlay.Storage.Disk
	}
	if overlay.Storage.LocalRoot != "" {
		c.Storage.LocalRoot = overlay.Storage.LocalRoot
	}
	if overlay.Storage.BaseURL != "" {
		c.Storage.BaseURL = overlay.Storage.BaseURL
	}
	if overlay.Storage.S3.Bucket != "" {
		c.Storage.S3 = overlay.Storage.S3
	}

	return nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
