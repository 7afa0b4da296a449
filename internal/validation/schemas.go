package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Schema sources compiled at startup. Kept inline so the binary never needs
// a schema directory alongside it.
const feedbackSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["user_id", "vehicle_id", "value"],
	"properties": {
		"user_id": {"type": "string", "format": "uuid"},
		"vehicle_id": {"type": "string", "format": "uuid"},
		"value": {"type": "number", "minimum": -1, "maximum": 5},
		"comment": {"type": "string", "maxLength": 2000},
		"timestamp": {"type": "string", "format": "date-time"}
	},
	"additionalProperties": false
}`

const searchEventSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["user_id"],
	"properties": {
		"user_id": {"type": "string", "format": "uuid"},
		"category": {"type": "string", "maxLength": 100},
		"location": {"type": "string", "maxLength": 200},
		"price_min": {"type": "number", "minimum": 0},
		"price_max": {"type": "number", "minimum": 0},
		"timestamp": {"type": "string", "format": "date-time"}
	},
	"additionalProperties": false
}`

// SchemaValidator handles JSON schema validation for API request payloads.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	sources := map[string]string{
		"feedback":     feedbackSchema,
		"search-event": searchEventSchema,
	}

	sv := &SchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema, len(sources)),
	}
	for name, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		sv.schemas[name] = schema
	}
	return sv, nil
}

// ValidateFeedback validates a feedback payload against its JSON schema.
func (sv *SchemaValidator) ValidateFeedback(data interface{}) *ValidationResult {
	return sv.validate("feedback", data)
}

// ValidateSearchEvent validates a search-event payload against its JSON schema.
func (sv *SchemaValidator) ValidateSearchEvent(data interface{}) *ValidationResult {
	return sv.validate("search-event", data)
}

func (sv *SchemaValidator) validate(schemaName string, data interface{}) *ValidationResult {
	schema, exists := sv.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Message: fmt.Sprintf("Schema '%s' not found", schemaName),
				Code:    "SCHEMA_NOT_FOUND",
			}},
		}
	}

	var documentLoader gojsonschema.JSONLoader
	switch v := data.(type) {
	case string:
		documentLoader = gojsonschema.NewStringLoader(v)
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(v)
	default:
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return &ValidationResult{
				Valid: false,
				Errors: []ValidationError{{
					Field:   "data",
					Message: fmt.Sprintf("Failed to marshal data to JSON: %v", err),
					Code:    "JSON_MARSHAL_ERROR",
				}},
			}
		}
		documentLoader = gojsonschema.NewBytesLoader(jsonBytes)
	}

	result, err := schema.Validate(documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "validation",
				Message: fmt.Sprintf("Validation error: %v", err),
				Code:    "VALIDATION_ERROR",
			}},
		}
	}

	validationResult := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}

	if !result.Valid() {
		for _, err := range result.Errors() {
			validationResult.Errors = append(validationResult.Errors, ValidationError{
				Field:   err.Field(),
				Message: err.Description(),
				Code:    "VALIDATION_ERROR",
				Value:   err.Value(),
			})
		}
	}

	return validationResult
}

// ValidationResult represents the result of a validation operation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ToAPIError converts validation errors to the API error envelope.
func (vr *ValidationResult) ToAPIError() map[string]interface{} {
	if vr.Valid {
		return nil
	}

	fieldErrors := make(map[string][]string)
	for _, err := range vr.Errors {
		if err.Field != "" {
			fieldErrors[err.Field] = append(fieldErrors[err.Field], err.Message)
		}
	}

	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    "VALIDATION_ERROR",
			"message": "Request validation failed",
			"details": map[string]interface{}{
				"validationErrors": vr.Errors,
				"fieldErrors":      fieldErrors,
			},
		},
	}
}
