package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of environment overrides (FILINGS_STORE_BACKEND, ...).
const EnvPrefix = "FILINGS"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// With an empty cfgFile, ./config.yaml and then homeDir/config.yaml are tried.
func NewManager(cfgFile, homeDir string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile, homeDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile, homeDir string) error {
	v := cm.v
	setDefaults(v, DefaultConfig())

	// Environment variables with FILINGS_ prefix, nested keys joined by "_"
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if homeDir != "" {
			v.AddConfigPath(homeDir)
		}
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults registers every leaf key so env overrides apply to nested values.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("extractor", d.Extractor)

	v.SetDefault("llamacloud.api_key", d.LlamaCloud.APIKey)
	v.SetDefault("llamacloud.base_url", d.LlamaCloud.BaseURL)
	v.SetDefault("llamacloud.project_id", d.LlamaCloud.ProjectID)
	v.SetDefault("llamacloud.deployment", d.LlamaCloud.Deployment)
	v.SetDefault("llamacloud.rate_limit", d.LlamaCloud.RateLimit)
	v.SetDefault("llamacloud.timeout_seconds", d.LlamaCloud.TimeoutSeconds)
	v.SetDefault("llamacloud.poll_interval_ms", d.LlamaCloud.PollIntervalMS)
	v.SetDefault("llamacloud.poll_timeout_seconds", d.LlamaCloud.PollTimeoutSeconds)

	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.timeout_seconds", d.OpenAI.TimeoutSeconds)
	v.SetDefault("openai.max_retries", d.OpenAI.MaxRetries)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("workflow.batch_concurrency", d.Workflow.BatchConcurrency)
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the config file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// SetLogger sets the logger used to report config reloads.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// WatchConfig enables hot-reloading of configuration. Invalid edits are
// logged and the previous configuration stays active.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cm.reload(e.Name)
	})
	cm.v.WatchConfig()
}

// reload applies the config viper has just read and notifies callbacks.
func (cm *Manager) reload(file string) error {
	cfg, err := cm.load()
	if err != nil {
		cm.mu.RLock()
		logger := cm.logger
		cm.mu.RUnlock()
		logger.Warn("config reload rejected, keeping previous config", "file", file, "error", err)
		return err
	}

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Extractor {
	case "llamacloud", "openai", "mock":
	default:
		return fmt.Errorf("unknown extractor %q (want llamacloud, openai or mock)", c.Extractor)
	}
	switch c.Store.Backend {
	case StoreAgentData, StoreBadger, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q (want %s, %s or %s)", c.Store.Backend, StoreAgentData, StoreBadger, StoreMemory)
	}
	return nil
}

var envRefPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// LlamaCloudAPIKey returns the LlamaCloud key with env references resolved.
func (c *Config) LlamaCloudAPIKey() string {
	return ResolveEnvVars(c.LlamaCloud.APIKey)
}

// OpenAIAPIKey returns the OpenAI key with env references resolved.
func (c *Config) OpenAIAPIKey() string {
	return ResolveEnvVars(c.OpenAI.APIKey)
}

// LoadDotEnv loads variables from the given dotenv files that exist.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Filings configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell or a .env file: LLAMA_CLOUD_API_KEY=xxx OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
