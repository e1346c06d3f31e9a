package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// ErrSchemaDefinition is returned when the schema itself cannot be produced.
var ErrSchemaDefinition = errors.New("invalid schema definition")

// JSONSchema returns the self-contained JSON Schema of ExtractionSchema.
// Nested types are inlined, so the result has no $ref nodes and no $defs.
//
// Every property is nullable and written as
//
//	{"anyOf": [<value schema>, {"type": "null"}], "title": ..., "description": ...}
//
// with the title and description on the property itself. The descriptions
// are the only guidance the extraction service gets for each field.
func JSONSchema() (map[string]any, error) {
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	reflected := r.Reflect(&ExtractionSchema{})
	reflected.Version = ""
	nullableProperties(reflected)

	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal reflected schema: %v", ErrSchemaDefinition, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode reflected schema: %v", ErrSchemaDefinition, err)
	}
	if strings.Contains(string(raw), `"$ref"`) {
		return nil, fmt.Errorf("%w: reflected schema still holds references", ErrSchemaDefinition)
	}
	return doc, nil
}

// nullableProperties rewrites every property below s into an anyOf of its
// value schema and null, lifting title and description to the property.
func nullableProperties(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	nullableProperties(s.Items)
	if s.Properties == nil {
		return
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		nullableProperties(prop)

		value := *prop
		value.Title = ""
		value.Description = ""
		s.Properties.Set(pair.Key, &jsonschema.Schema{
			AnyOf:       []*jsonschema.Schema{&value, {Type: "null"}},
			Title:       fieldTitle(pair.Key),
			Description: prop.Description,
		})
	}
}

// fieldTitle turns a snake_case JSON name into a title ("cik_number" -> "Cik Number").
func fieldTitle(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
