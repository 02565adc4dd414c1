package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar        = "APP_NAME"
	apiBaseURLVar     = "CHAMA_API_URL"
	credentialsDirVar = "CHAMA_CREDENTIALS_DIR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "chamactl")
}

// GetAPIBaseURL returns the REST API root, e.g. "http://localhost:5000/api".
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:5000/api")
}

// GetCredentialsDir returns where the token pair and profile snapshot are
// persisted between runs. Defaults to a directory under the user's config
// root.
func (EnvVars) GetCredentialsDir() string {
	if dir := os.Getenv(credentialsDirVar); dir != "" {
		return dir
	}
	configRoot, err := os.UserConfigDir()
	if err != nil {
		return ".chamapesa"
	}
	return filepath.Join(configRoot, "chamapesa")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
