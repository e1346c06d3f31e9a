package workflow

import (
	"fmt"

	"github.com/jackzampolin/filings/internal/extraction"
)

// MetadataResponse tells discovery tools where records are stored and what
// they look like.
type MetadataResponse struct {
	ExtractedDataCollection string         `json:"extracted_data_collection"`
	JSONSchema              map[string]any `json:"json_schema"`
}

// Metadata serves the metadata workflow. The response is computed once.
type Metadata struct {
	collection string
	schema     map[string]any
}

// NewMetadata builds the metadata response from the extraction config.
func NewMetadata(cfg *extraction.Config) (*Metadata, error) {
	if cfg == nil {
		return nil, fmt.Errorf("extraction config is required")
	}
	schema, err := cfg.Schema()
	if err != nil {
		return nil, err
	}
	return &Metadata{
		collection: extraction.CollectionName,
		schema:     schema,
	}, nil
}

// Describe returns the collection name and the dereferenced JSON Schema.
// Each call returns a fresh copy; callers may modify it freely.
func (m *Metadata) Describe() MetadataResponse {
	return MetadataResponse{
		ExtractedDataCollection: m.collection,
		JSONSchema:              deepCopy(m.schema).(map[string]any),
	}
}

// deepCopy copies decoded JSON values (maps, slices and scalars).
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
