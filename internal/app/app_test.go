package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/hitoshi/internhub/internal/config"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.DatabaseURL != testDatabaseURL {
		t.Errorf("DatabaseURL = %q, want postgres://...", cfg.DatabaseURL)
	}

	// Verify that slog global logger is configured for JSON output
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Setenv("SESSION_STORE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestOpenStorage_Memory_IsHealthy(t *testing.T) {
	st, err := openStorage(context.Background(), &config.Config{SessionStore: config.StoreMemory})
	if err != nil {
		t.Fatalf("openStorage(memory): %v", err)
	}
	defer st.close()

	if st.memory == nil {
		t.Error("memory store should be exposed for in-process cleanup")
	}
	if err := st.health(context.Background()); err != nil {
		t.Errorf("memory health check = %v, want nil", err)
	}
}

func TestOpenStorage_InvalidRedisURL_ReturnsError(t *testing.T) {
	_, err := openStorage(context.Background(), &config.Config{
		SessionStore: config.StoreRedis,
		RedisURL:     "not-a-redis-url",
	})
	if err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	got := maskDatabaseURL("postgres://user:secret@db:5432/internhub")
	if got != "postgres://u***@..." {
		t.Errorf("maskDatabaseURL = %q", got)
	}
	if got := maskDatabaseURL("short"); got != "***" {
		t.Errorf("maskDatabaseURL(short) = %q, want ***", got)
	}
}
