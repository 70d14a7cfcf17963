package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Agent         AgentConfig
	Search        SearchConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Database      *DatabaseConfig // Optional: shared rate-limit store. When nil, limits are kept in memory.
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// AgentConfig holds the language-model agent configuration.
// Provider is an OpenAI-compatible chat completions endpoint (groq or openai).
type AgentConfig struct {
	Provider      string
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float64
	MaxIterations int
	SystemPrompt  string
	Timeout       time.Duration
	MaxRetries    int
}

// SearchConfig holds the place search backends configuration
type SearchConfig struct {
	Nominatim       NominatimConfig
	Tavily          TavilyConfig
	FallbackOnEmpty bool
	Breaker         BreakerConfig
}

// NominatimConfig holds the primary (OpenStreetMap) backend configuration
type NominatimConfig struct {
	BaseURL           string
	UserAgent         string
	Limit             int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// TavilyConfig holds the secondary (answer search) backend configuration
type TavilyConfig struct {
	BaseURL       string
	APIKey        string
	Topic         string
	IncludeAnswer string
	MaxResults    int
	Timeout       time.Duration
}

// BreakerConfig configures the optional circuit breaker around the primary backend
type BreakerConfig struct {
	Enabled     bool
	MaxFailures int
	Timeout     time.Duration
	Interval    time.Duration
}

// RateLimitConfig holds per-client request limits for the query endpoint
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// DatabaseConfig holds PostgreSQL configuration for the shared rate-limit store.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// Agent provider defaults keyed by provider name
var providerBaseURLs = map[string]string{
	"groq":   "https://api.groq.com/openai/v1",
	"openai": "https://api.openai.com/v1",
}

var providerModels = map[string]string{
	"groq":   "llama-3.3-70b-versatile",
	"openai": "gpt-4o-mini",
}

const defaultSystemPrompt = "You are a helpful AI travel agent. Help the user plan a trip to any place in the world. " +
	"Use the available tools to look up attractions, restaurants, activities and transportation, " +
	"and answer with a complete, well structured travel plan in markdown."

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	provider := strings.ToLower(getEnv("AGENT_PROVIDER", "groq"))

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 180*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 150*time.Second),
		},
		Agent: AgentConfig{
			Provider:      provider,
			APIKey:        getEnv("AGENT_API_KEY", providerAPIKey(provider)),
			BaseURL:       getEnv("AGENT_BASE_URL", providerBaseURLs[provider]),
			Model:         getEnv("AGENT_MODEL", providerModels[provider]),
			Temperature:   getEnvAsFloat("AGENT_TEMPERATURE", 0),
			MaxIterations: getEnvAsInt("AGENT_MAX_ITERATIONS", 10),
			SystemPrompt:  getEnv("AGENT_SYSTEM_PROMPT", defaultSystemPrompt),
			Timeout:       getEnvAsDuration("AGENT_TIMEOUT", 60*time.Second),
			MaxRetries:    getEnvAsInt("AGENT_MAX_RETRIES", 2),
		},
		Search: SearchConfig{
			Nominatim: NominatimConfig{
				BaseURL:           getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
				UserAgent:         getEnv("NOMINATIM_USER_AGENT", "TripAgentBot/1.0 (ops@example.com)"),
				Limit:             getEnvAsInt("NOMINATIM_LIMIT", 5),
				Timeout:           getEnvAsDuration("NOMINATIM_TIMEOUT", 10*time.Second),
				RequestsPerSecond: getEnvAsFloat("NOMINATIM_REQUESTS_PER_SECOND", 1),
			},
			Tavily: TavilyConfig{
				BaseURL:       getEnv("TAVILY_BASE_URL", "https://api.tavily.com"),
				APIKey:        getEnv("TAVILY_API_KEY", ""),
				Topic:         getEnv("TAVILY_TOPIC", "general"),
				IncludeAnswer: getEnv("TAVILY_INCLUDE_ANSWER", "advanced"),
				MaxResults:    getEnvAsInt("TAVILY_MAX_RESULTS", 5),
				Timeout:       getEnvAsDuration("TAVILY_TIMEOUT", 20*time.Second),
			},
			FallbackOnEmpty: getEnvAsBool("SEARCH_FALLBACK_ON_EMPTY", true),
			Breaker: BreakerConfig{
				Enabled:     getEnvAsBool("SEARCH_BREAKER_ENABLED", false),
				MaxFailures: getEnvAsInt("SEARCH_BREAKER_MAX_FAILURES", 5),
				Timeout:     getEnvAsDuration("SEARCH_BREAKER_TIMEOUT", 30*time.Second),
				Interval:    getEnvAsDuration("SEARCH_BREAKER_INTERVAL", 60*time.Second),
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 20),
			CleanupInterval:   getEnvAsDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),
		},
		Database: loadDatabaseConfig(),
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Agent.BaseURL == "" {
		return fmt.Errorf("agent base URL is required for provider %q", c.Agent.Provider)
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("agent model is required")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent max iterations must be positive")
	}

	if c.Search.Nominatim.UserAgent == "" {
		return fmt.Errorf("nominatim user agent is required")
	}
	if c.Search.Nominatim.Limit <= 0 {
		return fmt.Errorf("nominatim limit must be positive")
	}

	if c.Search.Breaker.MaxFailures < 0 {
		return fmt.Errorf("breaker max failures must not be negative, got %d", c.Search.Breaker.MaxFailures)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive")
	}

	// Credentials are required in production
	if c.IsProduction() {
		if c.Agent.APIKey == "" {
			return fmt.Errorf("agent API key is required in production")
		}
		if c.Search.Tavily.APIKey == "" {
			return fmt.Errorf("tavily API key is required in production")
		}
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return c.ConnectionString
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	u, err := url.Parse(c.ConnectionString)
	if err != nil {
		return "host=<from DATABASE_URL>"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadDatabaseConfig loads the rate-limit store config from DATABASE_URL.
// Returns nil when not set (limits are kept in memory).
func loadDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// providerAPIKey returns the conventional API key variable for a provider
func providerAPIKey(provider string) string {
	switch provider {
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
