package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("MAX_FILE_BYTES", "")
	t.Setenv("MAX_FILES_PER_JOB", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CONFIG_FILE", "")

	cfg := Load()
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.NATSSubject != "analysis.completed" {
		t.Fatalf("expected default subject analysis.completed, got %q", cfg.NATSSubject)
	}
	if cfg.MaxFileBytes != 10<<20 {
		t.Fatalf("expected default max file bytes 10MiB, got %d", cfg.MaxFileBytes)
	}
	if cfg.MaxFilesPerJob != 10 {
		t.Fatalf("expected default max files per job 10, got %d", cfg.MaxFilesPerJob)
	}
	if cfg.HasAnalysisKey() {
		t.Fatal("expected no analysis key by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("MAX_FILE_BYTES", "1024")
	t.Setenv("MAX_FILES_PER_JOB", "3")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANALYSIS_RATE_LIMIT_PER_MIN", "5.5")
	t.Setenv("CONFIG_FILE", "")

	cfg := Load()
	if cfg.APIPort != "9999" {
		t.Fatalf("expected api port override, got %q", cfg.APIPort)
	}
	if cfg.MaxFileBytes != 1024 {
		t.Fatalf("expected max file bytes 1024, got %d", cfg.MaxFileBytes)
	}
	if cfg.MaxFilesPerJob != 3 {
		t.Fatalf("expected max files per job 3, got %d", cfg.MaxFilesPerJob)
	}
	if !cfg.HasAnalysisKey() {
		t.Fatal("expected analysis key to be present")
	}
	if cfg.AnalysisRateLimitPerMin != 5.5 {
		t.Fatalf("expected rate limit 5.5, got %v", cfg.AnalysisRateLimitPerMin)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_FILES_PER_JOB", "not-a-number")
	t.Setenv("CONFIG_FILE", "")

	cfg := Load()
	if cfg.MaxFilesPerJob != 10 {
		t.Fatalf("expected fallback to default on malformed value, got %d", cfg.MaxFilesPerJob)
	}
}

func TestConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	overlay := []byte("api_port: \"7070\"\nopenai:\n  model: gpt-4o\nmax_files_per_job: 4\n")
	if err := os.WriteFile(path, overlay, 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	t.Setenv("API_PORT", "8081")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("CONFIG_FILE", path)

	cfg := Load()
	if cfg.APIPort != "7070" {
		t.Fatalf("expected file overlay to win over env, got %q", cfg.APIPort)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("expected model from overlay, got %q", cfg.OpenAIModel)
	}
	if cfg.MaxFilesPerJob != 4 {
		t.Fatalf("expected max files per job 4 from overlay, got %d", cfg.MaxFilesPerJob)
	}
}

func TestConfigFileOverlayUnreadableFallsBackToEnv(t *testing.T) {
	t.Setenv("API_PORT", "8082")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.APIPort != "8082" {
		t.Fatalf("expected env value when overlay is unreadable, got %q", cfg.APIPort)
	}
}
