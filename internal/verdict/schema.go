package verdict

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thelabelsunday/invoice-checker/constants"
)

// BuildVerdictJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. The model is instructed to emit this shape and the reply is
// validated against it locally before being trusted.
func BuildVerdictJSONSchema(t constants.InvoiceType) map[string]any {
	checkItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"requirement": map[string]any{"type": "string", "minLength": 1},
			"status": map[string]any{
				"type": "string",
				"enum": []string{
					string(constants.CheckPresent),
					string(constants.CheckMissing),
					string(constants.CheckUnclear),
				},
			},
			"found_value":        nullableString(),
			"comment":            map[string]any{"type": "string"},
			"fix_recommendation": nullableString(),
		},
		"required": []string{"requirement", "status", "comment"},
	}

	layoutSuggestion := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"section":    map[string]any{"type": "string"},
			"issue":      map[string]any{"type": "string"},
			"suggestion": map[string]any{"type": "string"},
		},
		"required": []string{"section", "issue", "suggestion"},
	}

	props := map[string]any{
		"overall_status": map[string]any{
			"type": "string",
			"enum": []string{
				string(constants.StatusApproved),
				string(constants.StatusMissingInformation),
				string(constants.StatusInvalid),
			},
		},
		"invoice_type": map[string]any{
			"type": "string",
			"enum": []string{string(t)},
		},
		"checks": map[string]any{
			"type":  "array",
			"items": checkItem,
		},
		"missing_items": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"warnings": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"layout_suggestions": map[string]any{
			"type":  "array",
			"items": layoutSuggestion,
		},
		"summary": map[string]any{"type": "string", "minLength": 1},
		// Models frequently invent extra preview keys; keep this open so a
		// surplus field never sinks an otherwise valid reply.
		"extracted_data": map[string]any{
			"type":                 []string{"object", "null"},
			"additionalProperties": true,
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"overall_status", "invoice_type", "checks", "missing_items", "warnings", "summary"},
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
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
