package models

import (
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr   string        `yaml:"server_addr"`
	DatabaseURL  string        `yaml:"database_url"`
	TenantScoped bool          `yaml:"tenant_scoped"`
	JWTSecret    string        `yaml:"jwt_secret"`
	Storage      StorageConfig `yaml:"storage"`
	Edit         EditConfig    `yaml:"edit"`
}

// StorageConfig points at the external object-storage API.
type StorageConfig struct {
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Bucket              string `yaml:"bucket"`
	SignedURLTTLSeconds int    `yaml:"signed_url_ttl_seconds"`
	RetryBaseSeconds    int    `yaml:"retry_base_seconds"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
}

// EditConfig points at the edit function and the upstream generation API.
type EditConfig struct {
	FunctionURL    string `yaml:"function_url"`
	UpstreamURL    string `yaml:"upstream_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Credentials and endpoints are supplied out-of-band; environment variables
// take precedence over the file.
func (c *Config) applyEnv() {
	overrideEnv(&c.DatabaseURL, "DATABASE_URL")
	overrideEnv(&c.JWTSecret, "AUTH_JWT_SECRET")
	overrideEnv(&c.Storage.BaseURL, "STORAGE_URL")
	overrideEnv(&c.Storage.APIKey, "STORAGE_KEY")
	overrideEnv(&c.Storage.Bucket, "STORAGE_BUCKET")
	overrideEnv(&c.Edit.FunctionURL, "EDIT_FUNCTION_URL")
	overrideEnv(&c.Edit.UpstreamURL, "MODEL_API_URL")
	overrideEnv(&c.Edit.APIKey, "MODEL_API_KEY")
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.Storage.SignedURLTTLSeconds <= 0 {
		c.Storage.SignedURLTTLSeconds = 3600
	}
	if c.Storage.RetryBaseSeconds <= 0 {
		c.Storage.RetryBaseSeconds = 2
	}
	if c.Storage.TimeoutSeconds <= 0 {
		c.Storage.TimeoutSeconds = 60
	}
	if c.Edit.TimeoutSeconds <= 0 {
		c.Edit.TimeoutSeconds = 120
	}
}

func overrideEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
