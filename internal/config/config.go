package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port string

	// Upstash-style KV REST store (primary history backend)
	KVRestURL   string
	KVRestToken string

	// Alternative history backends
	RedisURL   string // used when KVRestURL is empty
	SQLitePath string // local-development fallback

	// Anthropic configuration (translate/breakdown/chat/screenshot)
	AnthropicAPIKey string
	AnthropicModel  string

	// Google Cloud TTS (pronunciation audio)
	GoogleAPIKey string

	// Fixed user accounts (username -> secret, plaintext or bcrypt hash)
	Users map[string]string

	// Account that owns the pre-multi-user shared history bucket
	LegacyAccount string

	// Optional YAML file overriding the built-in tutor prompts
	PromptsFile string

	// Login attempts allowed per IP per minute
	LoginRatePerMinute int

	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	users := map[string]string{}
	if pw := os.Getenv("USER_MATT_PASSWORD"); pw != "" {
		users["matt"] = pw
	}
	if pw := os.Getenv("USER_TUZ_PASSWORD"); pw != "" {
		users["tuz"] = pw
	}

	return &Config{
		Port: getEnv("PORT", "3001"),

		KVRestURL:   getEnv("KV_REST_API_URL", ""),
		KVRestToken: getEnv("KV_REST_API_TOKEN", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),

		Users:         users,
		LegacyAccount: getEnv("LEGACY_ACCOUNT", "matt"),

		PromptsFile: getEnv("PROMPTS_FILE", ""),

		LoginRatePerMinute: getIntEnv("LOGIN_RATE_PER_MINUTE", 10),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
