package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	LLMProvider string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float64

	GeminiAPIKey string
	GeminiModel  string

	LLMTimeoutSeconds int
	LLMRatePerSec     float64
	LLMRateBurst      int
	LLMRetryAttempts  int
	LLMBreakerEnabled bool

	MaxConcurrentDocs int
	DocTimeoutSeconds int
	ExtractRetries    int
	RulesPath         string

	MaxUploadFiles int
	MaxUploadMB    int

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		LLMProvider: mustEnv("LLM_PROVIDER", "openai"),

		OpenAIAPIKey:      mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       mustEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature: mustEnvFloat("OPENAI_TEMPERATURE", 0),

		GeminiAPIKey: mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:  mustEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		LLMTimeoutSeconds: mustEnvInt("LLM_TIMEOUT_SECONDS", 60),
		LLMRatePerSec:     mustEnvFloat("LLM_RATE_PER_SEC", 0),
		LLMRateBurst:      mustEnvInt("LLM_RATE_BURST", 1),
		LLMRetryAttempts:  mustEnvInt("LLM_RETRY_ATTEMPTS", 3),
		LLMBreakerEnabled: mustEnvBool("LLM_BREAKER_ENABLED", true),

		MaxConcurrentDocs: mustEnvInt("MAX_CONCURRENT_DOCS", 4),
		DocTimeoutSeconds: mustEnvInt("DOC_TIMEOUT_SECONDS", 90),
		ExtractRetries:    mustEnvInt("EXTRACT_RETRIES", 1),
		RulesPath:         mustEnv("RULES_PATH", ""),

		MaxUploadFiles: mustEnvInt("MAX_UPLOAD_FILES", 10),
		MaxUploadMB:    mustEnvInt("MAX_UPLOAD_MB", 25),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 1),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 100),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
