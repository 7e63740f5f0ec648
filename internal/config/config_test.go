package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App: AppConfig{Env: "local", Port: 8080},
		DB:  DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "callrecovery"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	err := Config{}.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "APP_PORT", "DB_HOST", "DB_USER", "DB_NAME"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestValidate_ProductionRequirements(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTSecret = "secret"
	c.applyDefaults()

	err := c.Validate()
	if err == nil {
		t.Fatalf("expected production errors")
	}
	for _, want := range []string{"DB_SSLMODE", "VAPI_WEBHOOK_SECRET", "JWT_ISSUER"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	c := validLocal()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Redis.DedupeTTL != 24*time.Hour {
		t.Fatalf("expected 24h dedupe ttl, got %v", c.Redis.DedupeTTL)
	}
	if c.Auth.JWTAudience != "authenticated" {
		t.Fatalf("expected supabase audience default, got %q", c.Auth.JWTAudience)
	}
	if c.RedisEnabled() || c.AuthEnabled() {
		t.Fatalf("redis and auth should be off without configuration")
	}
}

func TestValidate_RedisPortOnlyWhenEnabled(t *testing.T) {
	c := validLocal()
	c.applyDefaults()
	c.Redis.Host = "localhost"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "REDIS_PORT") {
		t.Fatalf("expected REDIS_PORT error, got %v", err)
	}
	c.Redis.Port = 6379
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.RedisAddr() != "localhost:6379" {
		t.Fatalf("unexpected addr %q", c.RedisAddr())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8081")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_NAME", "callrecovery")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("DEDUPE_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:5173")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr() != ":8081" || c.RedisAddr() != "cache:6380" {
		t.Fatalf("unexpected addrs %q %q", c.HTTPAddr(), c.RedisAddr())
	}
	if c.Redis.DedupeTTL != 2*time.Hour {
		t.Fatalf("unexpected ttl %v", c.Redis.DedupeTTL)
	}
	if len(c.CORS.AllowedOrigins) != 2 || c.CORS.AllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %v", c.CORS.AllowedOrigins)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8081")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DEDUPE_TTL", "forever")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "DEDUPE_TTL") {
		t.Fatalf("expected DEDUPE_TTL error, got %v", err)
	}
}
