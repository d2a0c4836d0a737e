// Package config loads the shell configuration from the environment. A .env
// file in the working directory is honored for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the demo shell needs to wire the session kit.
type Config struct {
	// ListenAddr is the shell's HTTP listen address.
	ListenAddr string

	// BackendURL is the eTuitionBd backend base URL.
	BackendURL string

	// IdentityURL is the identity service base URL. Empty selects the
	// in-memory fake provider.
	IdentityURL string

	// TokenPath overrides the persisted token file location.
	TokenPath string

	// RoleTimeout bounds the backend role lookup.
	RoleTimeout time.Duration

	// Google OAuth client for the third-party sign-in flow. Empty disables it.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// Load reads configuration from ETUITION_* environment variables, after
// loading an optional .env file.
func Load() (*Config, error) {
	// Missing .env is fine; env vars may come from the real environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ETUITION")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":7070")
	v.SetDefault("BACKEND_URL", "http://localhost:5000")
	v.SetDefault("ROLE_TIMEOUT", "8s")

	roleTimeout, err := time.ParseDuration(v.GetString("ROLE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid ETUITION_ROLE_TIMEOUT: %w", err)
	}

	return &Config{
		ListenAddr:         v.GetString("LISTEN_ADDR"),
		BackendURL:         v.GetString("BACKEND_URL"),
		IdentityURL:        v.GetString("IDENTITY_URL"),
		TokenPath:          v.GetString("TOKEN_PATH"),
		RoleTimeout:        roleTimeout,
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  v.GetString("GOOGLE_CALLBACK_URL"),
	}, nil
}
