package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LlamaCloud.APIKey != "${LLAMA_CLOUD_API_KEY}" {
		t.Error("expected llamacloud API key placeholder")
	}
	if cfg.OpenAI.APIKey != "${OPENAI_API_KEY}" {
		t.Error("expected openai API key placeholder")
	}
	if cfg.Extractor != "llamacloud" {
		t.Errorf("expected llamacloud extractor, got %s", cfg.Extractor)
	}
	if cfg.Store.Backend != StoreAgentData {
		t.Errorf("expected agentdata store, got %s", cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_APIKeys(t *testing.T) {
	t.Setenv("TEST_LLAMA_KEY", "llx-123")

	cfg := &Config{
		LlamaCloud: LlamaCloudCfg{APIKey: "${TEST_LLAMA_KEY}"},
		OpenAI:     OpenAICfg{APIKey: "sk-direct"},
	}
	if got := cfg.LlamaCloudAPIKey(); got != "llx-123" {
		t.Errorf("expected llx-123, got %s", got)
	}
	if got := cfg.OpenAIAPIKey(); got != "sk-direct" {
		t.Errorf("expected sk-direct, got %s", got)
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-supersecret"

	r := cfg.Redacted()
	if r.OpenAI.APIKey != "sk-s****" {
		t.Errorf("expected masked key, got %s", r.OpenAI.APIKey)
	}
	if r.LlamaCloud.APIKey != "${LLAMA_CLOUD_API_KEY}" {
		t.Errorf("expected placeholder kept, got %s", r.LlamaCloud.APIKey)
	}
	if cfg.OpenAI.APIKey != "sk-supersecret" {
		t.Error("Redacted mutated the original")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extractor = "tesseract"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown extractor")
	}

	cfg = DefaultConfig()
	cfg.Store.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown store backend")
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
extractor: openai
openai:
  model: gpt-4.1-mini
store:
  backend: badger
  path: /tmp/records
workflow:
  batch_concurrency: 8
`
		if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Extractor != "openai" {
			t.Errorf("expected openai extractor, got %s", cfg.Extractor)
		}
		if cfg.OpenAI.Model != "gpt-4.1-mini" {
			t.Errorf("expected gpt-4.1-mini, got %s", cfg.OpenAI.Model)
		}
		if cfg.Store.Backend != StoreBadger || cfg.Store.Path != "/tmp/records" {
			t.Errorf("unexpected store config: %+v", cfg.Store)
		}
		if cfg.Workflow.BatchConcurrency != 8 {
			t.Errorf("expected batch concurrency 8, got %d", cfg.Workflow.BatchConcurrency)
		}
		// Untouched keys keep their defaults.
		if cfg.LlamaCloud.Deployment != "filings" {
			t.Errorf("expected default deployment, got %s", cfg.LlamaCloud.Deployment)
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("expected config file %s, got %s", configFile, mgr.ConfigFile())
		}
	})

	t.Run("uses defaults when no config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		mgr, err := NewManager("", tmpDir)
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}

		cfg := mgr.Get()
		if cfg.LlamaCloud.RateLimit != 5.0 {
			t.Errorf("expected default rate limit 5, got %v", cfg.LlamaCloud.RateLimit)
		}
		if cfg.LlamaCloud.PollTimeoutSeconds != 600 {
			t.Errorf("expected default poll timeout, got %d", cfg.LlamaCloud.PollTimeoutSeconds)
		}
	})

	t.Run("env overrides nested keys", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("FILINGS_STORE_BACKEND", "memory")
		t.Setenv("FILINGS_LLAMACLOUD_DEPLOYMENT", "staging")

		mgr, err := NewManager("", tmpDir)
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Store.Backend != StoreMemory {
			t.Errorf("expected memory backend from env, got %s", cfg.Store.Backend)
		}
		if cfg.LlamaCloud.Deployment != "staging" {
			t.Errorf("expected staging deployment from env, got %s", cfg.LlamaCloud.Deployment)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")
		os.WriteFile(configFile, []byte("store:\n  backend: postgres\n"), 0o644)

		if _, err := NewManager(configFile, ""); err == nil {
			t.Error("expected error for invalid store backend")
		}
	})
}

func TestManager_OnChange(t *testing.T) {
	mgr := &Manager{
		config:    DefaultConfig(),
		callbacks: make([]func(*Config), 0),
	}

	var called atomic.Int32
	mgr.OnChange(func(cfg *Config) {
		called.Add(1)
	})

	if len(mgr.callbacks) != 1 {
		t.Errorf("expected 1 callback, got %d", len(mgr.callbacks))
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("workflow:\n  batch_concurrency: 2\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	mgr, err := NewManager(configFile, "")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	changed := make(chan *Config, 4)
	mgr.OnChange(func(cfg *Config) {
		changed <- cfg
	})
	mgr.WatchConfig()

	// Give the watcher a moment to start.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(configFile, []byte("workflow:\n  batch_concurrency: 9\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Workflow.BatchConcurrency == 9 {
				if mgr.Get().Workflow.BatchConcurrency != 9 {
					t.Error("Get did not return reloaded config")
				}
				return
			}
		case <-deadline:
			t.Skip("config watcher did not fire; filesystem notifications unavailable")
		}
	}
}

func TestManager_ReloadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("workflow:\n  batch_concurrency: 2\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	mgr, err := NewManager(configFile, "")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	var logs bytes.Buffer
	mgr.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	var called atomic.Int32
	mgr.OnChange(func(*Config) { called.Add(1) })

	if err := os.WriteFile(configFile, []byte("extractor: nonsense\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := mgr.v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	if err := mgr.reload(configFile); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
	if mgr.Get().Workflow.BatchConcurrency != 2 {
		t.Error("previous config should stay active")
	}
	if called.Load() != 0 {
		t.Error("callbacks should not run for a rejected config")
	}
	if !strings.Contains(logs.String(), "config reload rejected") || !strings.Contains(logs.String(), "nonsense") {
		t.Errorf("expected rejection to be logged, got %q", logs.String())
	}
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := WriteDefault(configPath); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	content := string(data)
	for _, want := range []string{"# Filings configuration", "${LLAMA_CLOUD_API_KEY}", "backend: agentdata", "batch_concurrency: 4"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in default config", want)
		}
	}

	// The written file loads back to the defaults.
	mgr, err := NewManager(configPath, "")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if mgr.Get().OpenAI.Model != "gpt-4.1" {
		t.Errorf("expected default model, got %s", mgr.Get().OpenAI.Model)
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envFile, []byte("FILINGS_TEST_DOTENV=from-file\nFILINGS_TEST_PRESET=from-file\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("FILINGS_TEST_PRESET", "from-env")
	t.Cleanup(func() { os.Unsetenv("FILINGS_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(tmpDir, "missing.env"), envFile, ""); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("FILINGS_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
	if got := os.Getenv("FILINGS_TEST_PRESET"); got != "from-env" {
		t.Errorf("expected existing env to win, got %q", got)
	}
}
