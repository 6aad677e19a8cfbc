package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
StoragePath = "./data"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Global.ListenPort != 5000 {
		t.Fatalf("ListenPort = %d, want 5000", cfg.Global.ListenPort)
	}
	if cfg.Global.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.Global.LogLevel)
	}
	if cfg.Global.Environment != EnvDev {
		t.Fatalf("Environment = %q, want dev", cfg.Global.Environment)
	}
	if got := cfg.Global.UpstreamTimeout.DurationValue(); got != 30*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want 30s", got)
	}
	if got := cfg.Registry.ThrottleInterval.DurationValue(); got != time.Second {
		t.Fatalf("ThrottleInterval = %v, want 1s", got)
	}
	if !filepath.IsAbs(cfg.Global.StoragePath) {
		t.Fatalf("StoragePath not absolute: %s", cfg.Global.StoragePath)
	}
	if !filepath.IsAbs(cfg.Registry.TarballCachePath) {
		t.Fatalf("TarballCachePath not absolute: %s", cfg.Registry.TarballCachePath)
	}
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
ListenPort = 8080
LogLevel = "debug"
Environment = "staging"
StoragePath = "/tmp/scene-hub-storage"
UpstreamTimeout = "45s"

[Registry]
IndexURL = "https://index.example.com"
APIURL = "https://api.example.com"
ThrottleInterval = "2s"
TarballCachePath = "/tmp/scene-hub-tarballs"
TarballCacheReadOnly = true

[GitHub]
APIURL = "https://api.github.example.com"
RawURL = "https://raw.github.example.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Global.ListenPort != 8080 {
		t.Fatalf("ListenPort = %d", cfg.Global.ListenPort)
	}
	if cfg.Global.Environment != EnvStaging {
		t.Fatalf("Environment = %q", cfg.Global.Environment)
	}
	if got := cfg.Registry.ThrottleInterval.DurationValue(); got != 2*time.Second {
		t.Fatalf("ThrottleInterval = %v", got)
	}
	if !cfg.Registry.TarballCacheReadOnly {
		t.Fatal("TarballCacheReadOnly should be true")
	}
	if cfg.GitHub.APIURL != "https://api.github.example.com" {
		t.Fatalf("GitHub.APIURL = %q", cfg.GitHub.APIURL)
	}
}

func TestLoadTokenFromEnvOnly(t *testing.T) {
	path := writeConfig(t, `
StoragePath = "./data"
`)

	t.Setenv(GitHubTokenEnv, "secret-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "secret-token" {
		t.Fatalf("Token = %q, want secret-token", cfg.GitHub.Token)
	}
}

func TestLoadNumericDuration(t *testing.T) {
	path := writeConfig(t, `
StoragePath = "./data"
UpstreamTimeout = 15
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Global.UpstreamTimeout.DurationValue(); got != 15*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want 15s", got)
	}
}

func TestValidateRejectsBadEnvironment(t *testing.T) {
	path := writeConfig(t, `
StoragePath = "./data"
Environment = "production"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown environment")
	}
	var fe FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want FieldError", err)
	}
	if fe.Field != "Environment" {
		t.Fatalf("Field = %q, want Environment", fe.Field)
	}
}

func TestValidateNormalizesEnvironment(t *testing.T) {
	path := writeConfig(t, `
StoragePath = "./data"
Environment = " Prod "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Global.Environment != EnvProd {
		t.Fatalf("Environment = %q, want prod", cfg.Global.Environment)
	}
	if !cfg.Global.Environment.IsProd() {
		t.Fatal("IsProd should be true")
	}
}

func TestValidateRejectsBadUpstream(t *testing.T) {
	path := writeConfig(t, `
StoragePath = "./data"

[Registry]
IndexURL = "ftp://index.example.com"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-http upstream")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
