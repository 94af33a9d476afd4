package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	// Server
	Port             string
	Env              string
	FrontendURL      string
	HTTPWriteTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// LLM provider
	LLMProvider           string
	GeminiAPIKey          string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	ChatModel             string
	AnalysisModel         string
	TranslateModel        string
	LLMConcurrentRequests int
	ChatMaxDuration       time.Duration

	// Agents
	AgentPython        string
	AgentScriptsDir    string
	AgentTimeout       time.Duration
	AgentMaxConcurrent int
	AgentCatalogPath   string
	AgentWorkers       int

	// Optional storage
	DatabaseURL string
	RedisURL    string

	// Optional security
	JWTSecret          string
	RateLimitPerMinute int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	provider := getEnvOrDefault("LLM_PROVIDER", ProviderGemini)

	cfg := &Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		Env:              getEnvOrDefault("ENV", "development"),
		FrontendURL:      getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		HTTPWriteTimeout: getEnvAsDurationOrDefault("HTTP_WRITE_TIMEOUT", 5*time.Minute),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		LLMProvider:           provider,
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         getEnvOrDefault("OPENAI_BASE_URL", ""),
		ChatModel:             getEnvOrDefault("LLM_CHAT_MODEL", defaultModel(provider, "chat")),
		AnalysisModel:         getEnvOrDefault("LLM_ANALYSIS_MODEL", defaultModel(provider, "analysis")),
		TranslateModel:        getEnvOrDefault("LLM_TRANSLATE_MODEL", defaultModel(provider, "translate")),
		LLMConcurrentRequests: getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),
		ChatMaxDuration:       getEnvAsDurationOrDefault("CHAT_MAX_DURATION", 30*time.Second),

		AgentPython:        getEnvOrDefault("AGENT_PYTHON", "python3"),
		AgentScriptsDir:    getEnvOrDefault("AGENT_SCRIPTS_DIR", "./scripts"),
		AgentTimeout:       getEnvAsDurationOrDefault("AGENT_TIMEOUT", 5*time.Minute),
		AgentMaxConcurrent: getEnvAsIntOrDefault("AGENT_MAX_CONCURRENT", 2),
		AgentCatalogPath:   getEnvOrDefault("AGENT_CATALOG_PATH", ""),
		AgentWorkers:       getEnvAsIntOrDefault("AGENT_WORKERS", 2),

		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:    getEnvOrDefault("REDIS_URL", ""),

		JWTSecret:          getEnvOrDefault("JWT_SECRET", ""),
		RateLimitPerMinute: getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 30),
	}

	return cfg
}

// Validate checks that the selected provider is known and has credentials.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("required environment variable GEMINI_API_KEY is not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("required environment variable OPENAI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (expected %q or %q)", c.LLMProvider, ProviderGemini, ProviderOpenAI)
	}
	if c.LLMConcurrentRequests < 1 {
		return fmt.Errorf("LLM_CONCURRENT_REQUESTS must be at least 1")
	}
	if c.AgentMaxConcurrent < 1 {
		return fmt.Errorf("AGENT_MAX_CONCURRENT must be at least 1")
	}
	return nil
}

func defaultModel(provider, purpose string) string {
	if provider == ProviderOpenAI {
		switch purpose {
		case "chat":
			return "gpt-4.1"
		case "analysis":
			return "gpt-4"
		default:
			return "gpt-4o-mini"
		}
	}
	return "gemini-2.5-flash"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
