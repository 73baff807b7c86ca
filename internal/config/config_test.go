package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialBackoff != time.Second {
		t.Errorf("initial backoff = %v, want 1s", cfg.Retry.InitialBackoff)
	}
	if cfg.Retry.MaxBackoff != 16*time.Second {
		t.Errorf("max backoff = %v, want 16s", cfg.Retry.MaxBackoff)
	}
	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d, want 5", cfg.Breaker.FailureThreshold)
	}
	if cfg.Breaker.Cooldown != time.Minute {
		t.Errorf("cooldown = %v, want 60s", cfg.Breaker.Cooldown)
	}
	if cfg.History.Window != 10 {
		t.Errorf("history window = %d, want 10", cfg.History.Window)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("storage driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Bedrock.Region != "us-east-2" {
		t.Errorf("bedrock region = %q, want us-east-2", cfg.Bedrock.Region)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 9090\nretry:\n  max_attempts: 5\n  initial_backoff: 500ms\nstorage:\n  driver: memory\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialBackoff != 500*time.Millisecond {
		t.Errorf("initial backoff = %v, want 500ms", cfg.Retry.InitialBackoff)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("storage driver = %q, want memory", cfg.Storage.Driver)
	}
	// File values must not disturb untouched defaults.
	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d, want 5", cfg.Breaker.FailureThreshold)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ASSISTANT_SERVER__PORT", "7070")
	t.Setenv("ASSISTANT_RETRY__MAX_BACKOFF", "8s")
	t.Setenv("ASSISTANT_STORAGE__DRIVER", "dynamodb")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("server port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Retry.MaxBackoff != 8*time.Second {
		t.Errorf("max backoff = %v, want 8s", cfg.Retry.MaxBackoff)
	}
	if cfg.Storage.Driver != "dynamodb" {
		t.Errorf("storage driver = %q, want dynamodb", cfg.Storage.Driver)
	}
}

func TestLoadMissingExplicitFileIsOK(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load with absent file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want default 8080", cfg.Server.Port)
	}
}
