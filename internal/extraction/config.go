package extraction

import (
	"encoding/json"
	"fmt"
)

// Mode selects the extraction service's quality tier.
type Mode string

const (
	ModeFast       Mode = "FAST"
	ModeBalanced   Mode = "BALANCED"
	ModePremium    Mode = "PREMIUM"
	ModeMultimodal Mode = "MULTIMODAL"
)

// SystemPrompt is the instruction sent with every 10-K extraction.
const SystemPrompt = "Extract key financial metrics and risk factors from this SEC 10-K annual report filing. " +
	"Focus on quantitative data from the financial statements and the most material risk factors from Item 1A."

// Config is the fixed configuration sent with every extraction request.
// Treat it as read-only once built; it is shared across concurrent workflows.
type Config struct {
	Mode             Mode   `json:"extraction_mode"`
	SystemPrompt     string `json:"system_prompt"`
	UseReasoning     bool   `json:"use_reasoning"`
	CiteSources      bool   `json:"cite_sources"`
	ConfidenceScores bool   `json:"confidence_scores"`

	// DataSchema is the dereferenced JSON Schema of ExtractionSchema,
	// serialized once so every request carries identical bytes.
	DataSchema json.RawMessage `json:"-"`
}

// NewConfig builds the extraction configuration. A schema that cannot be
// generated is a programming error and should stop the process at startup.
func NewConfig() (*Config, error) {
	doc, err := JSONSchema()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaDefinition, err)
	}
	return &Config{
		Mode:             ModePremium,
		SystemPrompt:     SystemPrompt,
		UseReasoning:     true,
		CiteSources:      true,
		ConfidenceScores: true,
		DataSchema:       raw,
	}, nil
}

// MustConfig is like NewConfig but panics on error.
func MustConfig() *Config {
	cfg, err := NewConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Schema decodes DataSchema into a fresh map owned by the caller.
func (c *Config) Schema() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(c.DataSchema, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaDefinition, err)
	}
	return out, nil
}
