package config

import "strings"

// Config holds filings configuration.
// Stored at: ~/.filings/config.yaml (or ./config.yaml)
type Config struct {
	// Extractor selects the extraction backend: "llamacloud", "openai" or "mock".
	Extractor  string        `mapstructure:"extractor" yaml:"extractor" json:"extractor"`
	LlamaCloud LlamaCloudCfg `mapstructure:"llamacloud" yaml:"llamacloud" json:"llamacloud"`
	OpenAI     OpenAICfg     `mapstructure:"openai" yaml:"openai" json:"openai"`
	Store      StoreCfg      `mapstructure:"store" yaml:"store" json:"store"`
	Workflow   WorkflowCfg   `mapstructure:"workflow" yaml:"workflow" json:"workflow"`
}

// LlamaCloudCfg configures the LlamaCloud client used for extraction, agent data and uploads.
type LlamaCloudCfg struct {
	// Supports ${ENV_VAR} syntax.
	APIKey             string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL            string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	ProjectID          string  `mapstructure:"project_id" yaml:"project_id" json:"project_id"`
	// Agent data deployment name.
	Deployment         string  `mapstructure:"deployment" yaml:"deployment" json:"deployment"`
	// Requests per second.
	RateLimit          float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	PollIntervalMS     int     `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms" json:"poll_interval_ms"`
	PollTimeoutSeconds int     `mapstructure:"poll_timeout_seconds" yaml:"poll_timeout_seconds" json:"poll_timeout_seconds"`
}

// OpenAICfg configures the alternative OpenAI extractor.
type OpenAICfg struct {
	// Supports ${ENV_VAR} syntax.
	APIKey         string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Model          string `mapstructure:"model" yaml:"model" json:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// StoreCfg selects where records are persisted.
type StoreCfg struct {
	// Backend is "agentdata" (LlamaCloud), "badger" (embedded) or "memory".
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend"`
	// Path is the Badger directory; defaults to ~/.filings/data/records.
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// WorkflowCfg tunes the processing workflow.
type WorkflowCfg struct {
	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency" json:"batch_concurrency"`
}

// Store backends.
const (
	StoreAgentData = "agentdata"
	StoreBadger    = "badger"
	StoreMemory    = "memory"
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extractor: "llamacloud",
		LlamaCloud: LlamaCloudCfg{
			APIKey:             "${LLAMA_CLOUD_API_KEY}",
			BaseURL:            "https://api.cloud.llamaindex.ai",
			Deployment:         "filings",
			RateLimit:          5.0,
			TimeoutSeconds:     60,
			PollIntervalMS:     2000,
			PollTimeoutSeconds: 600,
		},
		OpenAI: OpenAICfg{
			APIKey:         "${OPENAI_API_KEY}",
			Model:          "gpt-4.1",
			TimeoutSeconds: 300,
			MaxRetries:     2,
		},
		Store: StoreCfg{
			Backend: StoreAgentData,
		},
		Workflow: WorkflowCfg{
			BatchConcurrency: 4,
		},
	}
}

// Redacted returns a copy of c safe to print. Literal API keys are masked;
// ${ENV_VAR} references are kept since they hold no secret.
func (c *Config) Redacted() *Config {
	out := *c
	out.LlamaCloud.APIKey = redact(c.LlamaCloud.APIKey)
	out.OpenAI.APIKey = redact(c.OpenAI.APIKey)
	return &out
}

func redact(key string) string {
	if key == "" || (strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}")) {
		return key
	}
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
