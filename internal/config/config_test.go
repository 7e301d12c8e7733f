package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "KV_REST_API_URL", "KV_REST_API_TOKEN", "REDIS_URL", "SQLITE_PATH",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "GOOGLE_API_KEY",
		"USER_MATT_PASSWORD", "USER_TUZ_PASSWORD", "LEGACY_ACCOUNT",
		"PROMPTS_FILE", "LOGIN_RATE_PER_MINUTE", "ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Port != "3001" {
		t.Errorf("expected default port 3001, got %s", cfg.Port)
	}
	if cfg.AnthropicModel != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected default model: %s", cfg.AnthropicModel)
	}
	if cfg.LegacyAccount != "matt" {
		t.Errorf("expected legacy account matt, got %s", cfg.LegacyAccount)
	}
	if cfg.LoginRatePerMinute != 10 {
		t.Errorf("expected default login rate 10, got %d", cfg.LoginRatePerMinute)
	}
	if len(cfg.Users) != 0 {
		t.Errorf("expected no accounts without passwords set, got %v", cfg.Users)
	}
}

func TestLoadUsersFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("USER_MATT_PASSWORD", "kaas123")
	t.Setenv("USER_TUZ_PASSWORD", "fiets456")

	cfg := Load()
	if cfg.Users["matt"] != "kaas123" || cfg.Users["tuz"] != "fiets456" {
		t.Errorf("unexpected users: %v", cfg.Users)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "3")
	t.Setenv("KV_REST_API_URL", "https://kv.example.com")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.LoginRatePerMinute != 3 {
		t.Errorf("expected login rate 3, got %d", cfg.LoginRatePerMinute)
	}
	if cfg.KVRestURL != "https://kv.example.com" {
		t.Errorf("unexpected KV URL: %s", cfg.KVRestURL)
	}
}

func TestLoadIgnoresBadInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOGIN_RATE_PER_MINUTE", "lots")

	if got := Load().LoginRatePerMinute; got != 10 {
		t.Errorf("expected fallback to 10 on unparseable value, got %d", got)
	}
}
