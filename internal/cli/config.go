package cli

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that supply flag defaults.
const (
	EnvDBDir     = "ROWBRIDGE_DB_DIR"
	EnvModels    = "ROWBRIDGE_MODELS"
	EnvAuthority = "ROWBRIDGE_AUTHORITY"
	EnvUser      = "ROWBRIDGE_USER"
)

// Built-in defaults when neither flag nor environment sets a value.
const (
	DefaultDBDir     = "data"
	DefaultModels    = "models"
	DefaultAuthority = "com.example.provider"
)

// LoadEnv reads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadEnv() {
	_ = godotenv.Load()
}

// GetEnv returns the value of key, or defaultValue when unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
