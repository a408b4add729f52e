package yaml

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema describes the parts of a Dify DSL export the loader reads.
// Unknown properties are allowed so newer exports keep loading.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["workflow"],
  "properties": {
    "app": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "description": {"type": "string"},
        "mode": {"type": "string"}
      }
    },
    "kind": {"type": "string"},
    "version": {"type": "string"},
    "workflow": {
      "type": "object",
      "required": ["graph"],
      "properties": {
        "graph": {
          "type": "object",
          "required": ["nodes"],
          "properties": {
            "nodes": {
              "type": "array",
              "minItems": 1,
              "items": {
                "type": "object",
                "required": ["id", "data"],
                "properties": {
                  "id": {"type": "string", "minLength": 1},
                  "data": {
                    "type": "object",
                    "required": ["type"],
                    "properties": {
                      "type": {"type": "string", "minLength": 1},
                      "title": {"type": "string"}
                    }
                  }
                }
              }
            },
            "edges": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["source", "target"],
                "properties": {
                  "id": {"type": "string"},
                  "source": {"type": "string", "minLength": 1},
                  "target": {"type": "string", "minLength": 1},
                  "sourceHandle": {"type": ["string", "null"]}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchema)

// SchemaError lists every schema violation found in a document.
type SchemaError struct {
	Violations []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return "schema validation failed: " + strings.Join(e.Violations, "; ")
}

// Unwrap makes SchemaError match ErrInvalidDocument.
func (e *SchemaError) Unwrap() error {
	return ErrInvalidDocument
}

// ValidateSchema checks a decoded document against the DSL schema.
func ValidateSchema(raw any) error {
	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &SchemaError{Violations: violations}
}
