package config

import (
	"fmt"
	"os"
)

// StorageConfig configures the S3-compatible blob store used for image uploads.
type StorageConfig struct {
	Type         string `mapstructure:"type"` // r2, s3, s3compatible, local; empty auto-detects
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	AccessKeyEnv string `mapstructure:"access_key_env"`
	SecretKey    string `mapstructure:"secret_key"`
	SecretKeyEnv string `mapstructure:"secret_key_env"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	PublicURL    string `mapstructure:"public_url"` // R2.dev or CDN prefix
	KeyPrefix    string `mapstructure:"key_prefix"`
	Path         string `mapstructure:"path"` // root directory for type local
}

// ResolveEnvVars fills credentials from the named environment variables.
// Direct values take precedence.
func (c *StorageConfig) ResolveEnvVars() {
	if c.AccessKeyEnv != "" && c.AccessKey == "" {
		c.AccessKey = os.Getenv(c.AccessKeyEnv)
	}
	if c.SecretKeyEnv != "" && c.SecretKey == "" {
		c.SecretKey = os.Getenv(c.SecretKeyEnv)
	}
}

// Validate checks that uploads can be attempted with this configuration.
// Returns an error describing the first validation failure, or nil if valid.
func (c *StorageConfig) Validate() error {
	if c.Type == "local" {
		if c.Path == "" {
			return fmt.Errorf("storage: path is required for local storage")
		}
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("storage: endpoint is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("storage: bucket is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("storage: access_key and secret_key are required")
	}

	switch c.Type {
	case "", "r2", "s3", "s3compatible":
	default:
		return fmt.Errorf("storage: unknown type %q", c.Type)
	}

	if c.Type == "r2" && c.PublicURL == "" {
		return fmt.Errorf("storage: public_url is required for r2")
	}
	return nil
}
