package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from a .env file if one is present.
// System-wide environment variables still apply when no file exists.
func LoadEnv() error {
	envPaths := []string{".env", ".env.local"}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}
	}
	return nil
}

// OpenAIAPIKey returns the OpenAI credential from the environment, empty
// when not configured. Credentials never live in the settings file.
func OpenAIAPIKey() string {
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

// WhisperBinary returns the whisper.cpp executable path.
func WhisperBinary() string {
	return strings.TrimSpace(os.Getenv("WHISPER_CPP_BINARY"))
}

// WhisperModelDir returns the directory holding ggml model files.
func WhisperModelDir() string {
	return strings.TrimSpace(os.Getenv("WHISPER_CPP_MODEL_DIR"))
}
