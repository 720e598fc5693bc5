package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration (backing store for the key store server)
	Database DatabaseConfig

	// Remote key store configuration (consumed by the vault client)
	KeyStore KeyStoreConfig

	// Service catalog configuration
	Catalog CatalogConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// KeyStoreConfig holds remote key store client configuration
type KeyStoreConfig struct {
	BaseURL        string
	APIToken       string
	TimeoutSeconds int
}

// CatalogConfig holds service catalog configuration. Path points at a YAML
// catalog file; URL, when set, takes precedence and the catalog is fetched
// from the key store server instead.
type CatalogConfig struct {
	Path string
	URL  string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins string
	TimeoutSeconds     int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		KeyStore: KeyStoreConfig{
			BaseURL:        getEnvString("KEYSTORE_BASE_URL", "http://localhost:8480"),
			APIToken:       os.Getenv("KEYSTORE_API_TOKEN"),
			TimeoutSeconds: getEnvInt("KEYSTORE_TIMEOUT_SECONDS", 30),
		},
		Catalog: CatalogConfig{
			Path: getEnvString("CATALOG_PATH", "services.yaml"),
			URL:  os.Getenv("CATALOG_URL"),
		},
		HTTP: HTTPConfig{
			Port:               getEnvString("HTTP_PORT", "8480"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			TimeoutSeconds:     getEnvInt("HTTP_TIMEOUT_SECONDS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.KeyStore.BaseURL == "" {
		return fmt.Errorf("KEYSTORE_BASE_URL must not be empty")
	}
	if c.KeyStore.TimeoutSeconds <= 0 {
		return fmt.Errorf("KEYSTORE_TIMEOUT_SECONDS must be positive, got %d", c.KeyStore.TimeoutSeconds)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.Catalog.Path == "" && c.Catalog.URL == "" {
		return fmt.Errorf("one of CATALOG_PATH or CATALOG_URL must be set")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		KeyStore: KeyStoreConfig{
			BaseURL:        "http://localhost:8480",
			APIToken:       "",
			TimeoutSeconds: 30,
		},
		Catalog: CatalogConfig{
			Path: "services.yaml",
		},
		HTTP: HTTPConfig{
			Port:               "8480",
			CORSAllowedOrigins: "*",
			TimeoutSeconds:     30,
		},
	}
}
