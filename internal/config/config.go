package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Identity     IdentityConfig     `yaml:"identity"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Verification VerificationConfig `yaml:"verification"`
	Legacy       LegacyConfig       `yaml:"legacy"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the rate-limit counter store configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IdentityConfig holds identity provider configuration. KeysURL is the
// provider's public-key endpoint; tokens are verified locally against it.
type IdentityConfig struct {
	KeysURL  string `yaml:"keys_url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// GatewayConfig holds outbound messaging gateway configuration
type GatewayConfig struct {
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
}

// VerificationConfig holds code/session lifetimes and rate-limit thresholds
type VerificationConfig struct {
	CodeTTLSeconds         int `yaml:"code_ttl_seconds"`
	SessionTTLSeconds      int `yaml:"session_ttl_seconds"`
	MaxAttempts            int `yaml:"max_attempts"`
	MaxCodeRequestsPerHour int `yaml:"max_code_requests_per_hour"`
	MaxVerifyPerIPPerMin   int `yaml:"max_verify_per_ip_per_min"`
}

// LegacyConfig holds the interim shared-secret override. An empty secret
// disables the override entirely.
type LegacyConfig struct {
	SharedSecret string `yaml:"shared_secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Verification.applyDefaults()

	return &cfg, nil
}

func (c *VerificationConfig) applyDefaults() {
	if c.CodeTTLSeconds == 0 {
		c.CodeTTLSeconds = 600
	}
	if c.SessionTTLSeconds == 0 {
		c.SessionTTLSeconds = 1800
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.MaxCodeRequestsPerHour == 0 {
		c.MaxCodeRequestsPerHour = 3
	}
	if c.MaxVerifyPerIPPerMin == 0 {
		c.MaxVerifyPerIPPerMin = 10
	}
}

// CodeTTL returns the one-time code lifetime
func (c *VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLSeconds) * time.Second
}

// SessionTTL returns the guest session lifetime
func (c *VerificationConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
