package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jackzampolin/filings/internal/extraction"
)

const (
	OpenAIName = "openai"

	openAIDefaultModel = "gpt-4.1"
	openAISchemaName   = "sec_10k_filing"
)

// OpenAIConfig holds configuration for the OpenAI extractor.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string        // Optional
	Model      string        // Default: gpt-4.1
	Timeout    time.Duration // Default: 300s
	MaxRetries int           // SDK-level retries for transport errors; default 2
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAI extracts from a file previously uploaded to the OpenAI file store,
// using chat completions with a JSON Schema response format.
type OpenAI struct {
	model  string
	client openai.Client
}

// NewOpenAI creates a new OpenAI extractor.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}
}

// Name returns the backend identifier.
func (e *OpenAI) Name() string {
	return OpenAIName
}

// Model returns the configured model.
func (e *OpenAI) Model() string {
	return e.model
}

// openAIEnvelope is the response shape requested from the model. Extracted
// values live under data; evidence and reasoning are returned as metadata.
type openAIEnvelope struct {
	Data          json.RawMessage `json:"data"`
	FieldMetadata map[string]any  `json:"field_metadata,omitempty"`
	Reasoning     string          `json:"reasoning,omitempty"`
}

// Extract asks the model to fill the extraction schema from fileID.
func (e *OpenAI) Extract(ctx context.Context, fileID string, cfg *extraction.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("extraction config is required")
	}
	schema, err := responseSchema(cfg)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(cfg)),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
					FileID: openai.String(fileID),
				}),
				openai.TextContentPart("Extract the requested fields from the attached 10-K filing."),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        openAISchemaName,
					Description: openai.String("Structured data extracted from an SEC 10-K filing"),
					Schema:      schema,
					Strict:      openai.Bool(false),
				},
			},
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	raw, err := parseStructuredJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	var env openAIEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAI response envelope: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("OpenAI response has no data")
	}

	meta := map[string]any{
		"model":             resp.Model,
		"extraction_mode":   string(cfg.Mode),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}
	if len(env.FieldMetadata) > 0 {
		meta["field_metadata"] = env.FieldMetadata
	}
	if env.Reasoning != "" {
		meta["reasoning"] = env.Reasoning
	}

	return &Result{
		Data:     env.Data,
		Metadata: meta,
		JobID:    resp.ID,
	}, nil
}

func systemPrompt(cfg *extraction.Config) string {
	var b strings.Builder
	b.WriteString(cfg.SystemPrompt)
	b.WriteString("\n\nLeave a field null when the filing does not state it. Do not estimate values.")
	if cfg.UseReasoning {
		b.WriteString("\nBefore answering, note in `reasoning` where in the filing the key values were found.")
	}
	if cfg.CiteSources {
		b.WriteString("\nFor each extracted value, add a `citation` under `field_metadata` keyed by the value's JSON path.")
	}
	if cfg.ConfidenceScores {
		b.WriteString("\nFor each extracted value, add a `confidence` between 0 and 1 under `field_metadata` keyed by the value's JSON path.")
	}
	return b.String()
}

// responseSchema wraps the extraction schema in the envelope requested from the model.
func responseSchema(cfg *extraction.Config) (map[string]any, error) {
	data, err := cfg.Schema()
	if err != nil {
		return nil, err
	}

	props := map[string]any{"data": data}

	evidence := map[string]any{}
	if cfg.CiteSources {
		evidence["citation"] = map[string]any{
			"type":        "string",
			"description": "Verbatim excerpt or section reference supporting the value",
		}
	}
	if cfg.ConfidenceScores {
		evidence["confidence"] = map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		}
	}
	if len(evidence) > 0 {
		props["field_metadata"] = map[string]any{
			"type":        "object",
			"description": "Per-value evidence keyed by JSON path",
			"additionalProperties": map[string]any{
				"type":       "object",
				"properties": evidence,
			},
		}
	}
	if cfg.UseReasoning {
		props["reasoning"] = map[string]any{"type": "string"}
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []any{"data"},
	}, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("OpenAI extraction error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("OpenAI extraction error (status %d)", apiErr.StatusCode)
	}
	return err
}
