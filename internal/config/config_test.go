package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.AuthMaxAge != time.Hour {
		t.Fatalf("expected one hour auth max age, got %v", cfg.AuthMaxAge)
	}
	if cfg.TelegramAPIURL != "https://api.telegram.org" {
		t.Fatalf("unexpected telegram api url: %s", cfg.TelegramAPIURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("AUTH_MAX_AGE", "30m")
	t.Setenv("RUN_MIGRATIONS", "true")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.BotToken != "123:abc" {
		t.Fatalf("expected override bot token")
	}
	if cfg.AuthMaxAge != 30*time.Minute {
		t.Fatalf("expected override auth max age, got %v", cfg.AuthMaxAge)
	}
	if !cfg.RunMigrations {
		t.Fatalf("expected migrations enabled")
	}
}
