package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("USER", "ana")
	for _, k := range []string{"SKILLQUEST_LEARNER", "SKILLQUEST_DB", "SKILLQUEST_API_BASE_URL", "SKILLQUEST_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Learner != "ana" {
		t.Errorf("Learner = %q, want ana", cfg.Learner)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", cfg.API.Timeout)
	}
	if cfg.Quest.PassScore != 70 {
		t.Errorf("PassScore = %d, want 70", cfg.Quest.PassScore)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want none", cfg.Source)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolate(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "skillquest")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "learner: ben\napi:\n  timeout: 5s\n  rate_limit: 2\nquest:\n  pass_score: 80\nlog:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "skillquest.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKILLQUEST_LEARNER", "cy")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Learner != "cy" {
		t.Errorf("env should override file: Learner = %q", cfg.Learner)
	}
	if cfg.API.Timeout != 5*time.Second || cfg.API.RateLimit != 2 {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Quest.PassScore != 80 || cfg.Log.Level != "debug" {
		t.Errorf("Quest = %+v, Log = %+v", cfg.Quest, cfg.Log)
	}
	if cfg.Source == "" {
		t.Error("Source should name the file read")
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("quest:\n  pass_score: 140\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_ZeroTimeoutInvalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "zero.yaml")
	if err := os.WriteFile(path, []byte("api:\n  timeout: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for a zero api.timeout")
	}
}

func TestCachePath(t *testing.T) {
	c := &Config{}
	if got := c.CachePath("/data/skillquest/skillquest.db"); got != "/data/skillquest/cache" {
		t.Errorf("CachePath = %q", got)
	}
	c.CacheDir = "/tmp/kv"
	if got := c.CachePath("/x.db"); got != "/tmp/kv" {
		t.Errorf("CachePath = %q", got)
	}
}
