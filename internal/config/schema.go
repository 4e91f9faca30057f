package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "file:///fibers/config.schema.json"

//go:embed config.schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateDocument checks a raw YAML config against the embedded schema,
// catching misspelled keys and wrongly typed values before they are
// silently replaced by defaults.
func validateDocument(doc []byte) error {
	var raw any
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}

	// normalize YAML scalars to their JSON equivalents
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to normalize config for schema validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("failed to normalize config for schema validation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	return nil
}
