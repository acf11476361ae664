package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "MORAINE"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "moraine.db"
	defaultLogLevel      = "info"
	defaultCookieName    = "admin_session"
	defaultSessionDays   = 30
	defaultEnvironment   = "development"
	defaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// AppConfig captures runtime configuration for the site backend.
type AppConfig struct {
	HTTPAddress    string
	Environment    string
	AdminPassword  string
	SigningSecret  string
	CookieName     string
	SessionTTL     time.Duration
	GoogleClientID string
	GoogleSecret   string
	GoogleJWKSURL  string
	DatabasePath   string
	LogLevel       string
}

// Production reports whether the server runs with production hardening enabled.
func (c AppConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("environment", defaultEnvironment)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("session.cookie_name", defaultCookieName)
	configViper.SetDefault("session.ttl_days", defaultSessionDays)
	configViper.SetDefault("google.jwks_url", defaultGoogleJWKSURL)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		Environment:    configViper.GetString("environment"),
		AdminPassword:  configViper.GetString("admin.password"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		CookieName:     configViper.GetString("session.cookie_name"),
		SessionTTL:     time.Duration(configViper.GetInt("session.ttl_days")) * 24 * time.Hour,
		GoogleClientID: configViper.GetString("google.client_id"),
		GoogleSecret:   configViper.GetString("google.client_secret"),
		GoogleJWKSURL:  configViper.GetString("google.jwks_url"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AdminPassword) == "" {
		return fmt.Errorf("admin.password is required")
	}
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.GoogleClientID) == "" {
		return fmt.Errorf("google.client_id is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session.ttl_days must be positive")
	}
	return nil
}
