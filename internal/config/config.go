package config

import (
	"errors"
	"os"
	"strings"
)

// DefaultModel is the provider model used when a request names no model or an
// unknown one.
const DefaultModel = "llama3-8b-8192"

// AvailableModels maps client-facing short names to provider model identifiers.
var AvailableModels = map[string]string{
	"llama3-8b":    "llama3-8b-8192",
	"llama3-70b":   "llama3-70b-8192",
	"mixtral-8x7b": "mixtral-8x7b-32768",
	"gemma-7b":     "gemma-7b-it",
}

type Config struct {
	Addr          string
	DBPath        string
	APIKey        string
	BaseURL       string
	HealthPingURL string
	Models        map[string]string
	DefaultModel  string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	apiKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("GROQ_API_KEY is required")
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	return &Config{
		Addr:          ":" + port,
		DBPath:        getEnvOrDefault("DB_PATH", "pinned_thoughts.db"),
		APIKey:        apiKey,
		BaseURL:       getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		HealthPingURL: strings.TrimSpace(os.Getenv("HEALTH_PING_URL")),
		Models:        AvailableModels,
		DefaultModel:  DefaultModel,
	}, nil
}

// ResolveModel maps a requested short name to a provider model identifier.
// Unknown or empty names resolve to the default model rather than erroring.
func (c *Config) ResolveModel(name string) string {
	if id, ok := c.Models[name]; ok {
		return id
	}
	return c.DefaultModel
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
