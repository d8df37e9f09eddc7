// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file location.
const EnvConfigPath = "APP_CONFIG_PATH"

// Default token claim names, overridable per deployment.
const (
	DefaultUsernameClaim      = "preferred_username"
	DefaultEmailClaim         = "email"
	DefaultEmailVerifiedClaim = "email_verified"
	DefaultNameClaim          = "name"
)

// AuthConfig describes the external OIDC issuer used to verify bearer
// tokens and to establish identity federation in IAM.
type AuthConfig struct {
	// Domain is the issuer host, e.g. "auth.example.com". Tokens are
	// verified against https://<domain>/.
	Domain      string   `yaml:"domain"`
	Audience    string   `yaml:"audience"`
	ClientID    string   `yaml:"clientId"`
	RedirectURI string   `yaml:"redirectUri"`
	Scopes      []string `yaml:"scopes"`

	UsernameClaim      string `yaml:"usernameClaim"`
	EmailClaim         string `yaml:"emailClaim"`
	EmailVerifiedClaim string `yaml:"emailVerifiedClaim"`
	NameClaim          string `yaml:"nameClaim"`
}

// AWSConfig locates the cloud resources the service manages.
type AWSConfig struct {
	Region    string `yaml:"region"`
	Partition string `yaml:"partition"`
	VpcID     string `yaml:"vpcId"`
	SubnetID  string `yaml:"subnetId"`
	TableName string `yaml:"tableName"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Config is the root application configuration.
type Config struct {
	Auth   AuthConfig   `yaml:"auth"`
	AWS    AWSConfig    `yaml:"aws"`
	Server ServerConfig `yaml:"server"`
}

// Load reads the configuration from the path named by APP_CONFIG_PATH.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", EnvConfigPath)
	}
	return LoadFile(path)
}

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.UsernameClaim == "" {
		c.Auth.UsernameClaim = DefaultUsernameClaim
	}
	if c.Auth.EmailClaim == "" {
		c.Auth.EmailClaim = DefaultEmailClaim
	}
	if c.Auth.EmailVerifiedClaim == "" {
		c.Auth.EmailVerifiedClaim = DefaultEmailVerifiedClaim
	}
	if c.Auth.NameClaim == "" {
		c.Auth.NameClaim = DefaultNameClaim
	}
	if c.AWS.Partition == "" {
		c.AWS.Partition = "aws"
	}
	if c.AWS.TableName == "" {
		c.AWS.TableName = "workspaces"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.Auth.Domain == "" {
		return fmt.Errorf("auth.domain is required")
	}
	if _, err := url.Parse("https://" + c.Auth.Domain); err != nil {
		return fmt.Errorf("auth.domain is not a valid host: %w", err)
	}
	if c.Auth.Audience == "" {
		return fmt.Errorf("auth.audience is required")
	}
	if c.Auth.ClientID == "" {
		return fmt.Errorf("auth.clientId is required")
	}
	if c.Auth.RedirectURI == "" {
		return fmt.Errorf("auth.redirectUri is required")
	}
	if len(c.Auth.Scopes) == 0 {
		return fmt.Errorf("auth.scopes must not be empty")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if c.AWS.VpcID == "" {
		return fmt.Errorf("aws.vpcId is required")
	}
	if c.AWS.SubnetID == "" {
		return fmt.Errorf("aws.subnetId is required")
	}
	return nil
}
