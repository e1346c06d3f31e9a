package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compiledErr    error
)

func validator() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		doc, err := JSONSchema()
		if err != nil {
			compiledErr = err
			return
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			compiledErr = fmt.Errorf("%w: %v", ErrSchemaDefinition, err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
			compiledErr = fmt.Errorf("failed to load extraction schema: %w", err)
			return
		}
		compiledSchema, compiledErr = compiler.Compile("schema.json")
		if compiledErr != nil {
			compiledErr = fmt.Errorf("failed to compile extraction schema: %w", compiledErr)
		}
	})
	return compiledSchema, compiledErr
}

// Validate checks a raw record against the extraction schema.
func Validate(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("empty record")
	}

	schema, err := validator()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode record for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
