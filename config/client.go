package config

import (
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig holds the companion chat UI configuration
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Author  string
	SaveDir string
}

// LoadClient loads the chat UI configuration from the environment
func LoadClient() ClientConfig {
	_ = godotenv.Load(".env")

	return ClientConfig{
		BaseURL: getEnv("TRAVEL_API_URL", "http://localhost:8000"),
		Timeout: getEnvAsDuration("TRAVEL_API_TIMEOUT", 3*time.Minute),
		Author:  getEnv("TRAVEL_PLAN_AUTHOR", "Travel Agent"),
		SaveDir: getEnv("TRAVEL_PLAN_DIR", "."),
	}
}
