package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildExtractionResultSchema returns a JSON-Schema (draft 2020-12 subset) as
// a generic map describing the extraction endpoint's success response. Table
// row data is left unconstrained because the endpoint has shipped two shapes
// (object rows and raw grids); the decoder canonicalizes both.
func BuildExtractionResultSchema() map[string]any {
	tableProps := map[string]any{
		"index":      map[string]any{"type": "integer", "minimum": 0},
		"page":       map[string]any{"type": "integer", "minimum": 0},
		"rows":       map[string]any{"type": "integer", "minimum": 0},
		"columns":    map[string]any{"type": "integer", "minimum": 0},
		"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		"method":     map[string]any{"type": "string"},
		"headers":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"data":       map[string]any{"type": "array"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success":      map[string]any{"type": "boolean"},
			"message":      map[string]any{"type": "string"},
			"tables_found": map[string]any{"type": "integer", "minimum": 0},
			"confidence_score": map[string]any{
				"type": "number", "minimum": 0.0, "maximum": 1.0,
			},
			"extraction_method": map[string]any{"type": "string"},
			"file_id":           map[string]any{"type": "string"},
			"processing_time":   map[string]any{"type": "number", "minimum": 0.0},
			"tables": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": tableProps,
				},
			},
		},
		"required": []string{"success", "tables"},
	}
}

// ValidateAgainstSchema validates data against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
