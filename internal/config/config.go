package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Keys     APIKeys
	Ai       AIConfig
	Credits  CreditConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	JwtSecret          string
	OpenAI             string
	GoogleClientID     string // Google sign-in is disabled when empty
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type AIConfig struct {
	LLMProvider    string // "ollama" or "openai"
	LLMModel       string
	OllamaBaseURL  string
	OpenAIBaseURL  string // optional, for OpenAI-compatible gateways
	RequestTimeout time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type CreditConfig struct {
	DailyFreeCredits   int // used only while credit_configs has no daily_free_credits row
	ConfigCacheTTL     time.Duration
	AiRateLimitPerMin  int
	StaleRequestAfter  time.Duration
	StaleSweepSchedule string
	ResultCacheTTL     time.Duration
}

// Load reads the environment (and .env when present) and rejects unsafe combinations.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "AI Study Tool"),
		},
		Keys: APIKeys{
			JwtSecret:          getEnv("JWT_SECRET", "default_secret"),
			OpenAI:             getEnv("OPENAI_API_KEY", ""),
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:3000/api/auth/google/callback"),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
			RequestTimeout: getEnvAsSeconds("AI_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Credits: CreditConfig{
			DailyFreeCredits:   getEnvAsInt("DAILY_FREE_CREDITS", 10),
			ConfigCacheTTL:     getEnvAsSeconds("CONFIG_CACHE_TTL_SECONDS", 300),
			AiRateLimitPerMin:  getEnvAsInt("AI_RATE_LIMIT_PER_MINUTE", 10),
			StaleRequestAfter:  time.Duration(getEnvAsInt("STALE_REQUEST_MINUTES", 10)) * time.Minute,
			StaleSweepSchedule: getEnv("STALE_SWEEP_SCHEDULE", "@every 1m"),
			ResultCacheTTL:     time.Duration(getEnvAsInt("RESULT_CACHE_MINUTES", 60)) * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-studytool-backend"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that only make sense together. A stale window no longer than
// the provider timeout would let the sweeper fail requests that are still running.
func (c *Config) Validate() error {
	if c.Credits.StaleRequestAfter <= c.Ai.RequestTimeout {
		return fmt.Errorf("STALE_REQUEST_MINUTES (%s) must exceed AI_REQUEST_TIMEOUT_SECONDS (%s)",
			c.Credits.StaleRequestAfter, c.Ai.RequestTimeout)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}
