package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment
type Config struct {
	ServerPort string

	// Mirror store
	DBPath string

	// Public base URL the provider delivers webhook notifications to
	PublicBaseURL string

	// Workflow engine
	WorkflowEngineURL   string
	WorkflowEngineToken string

	// Credentials
	CredentialsDir     string
	CredentialsProfile string
	UseKeyring         bool

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment. Outside production an
// optional .env file is loaded first.
func Load() *Config {
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load()
	}

	return &Config{
		ServerPort: getEnv("PORT", "8086"),

		DBPath: getEnv("DB_PATH", "data/driveconnect.db"),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8086"),

		WorkflowEngineURL:   getEnv("WORKFLOW_ENGINE_URL", "http://localhost:8090"),
		WorkflowEngineToken: os.Getenv("WORKFLOW_ENGINE_TOKEN"),

		CredentialsDir:     getEnv("CREDENTIALS_DIR", defaultCredentialsDir()),
		CredentialsProfile: getEnv("CREDENTIALS_PROFILE", "default"),
		UseKeyring:         getEnv("USE_KEYRING", "false") == "true",

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func defaultCredentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".driveconnect"
	}
	return home + "/.driveconnect"
}
