package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateNodeConfig validates node data against the type's schema.
func ValidateNodeConfig(meta *NodeMetadata, data map[string]any) error {
	if len(meta.ConfigSchema) == 0 {
		return nil
	}

	schemaJSON, err := json.Marshal(meta.ConfigSchema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}

// ValidateAll validates data for several node types at once, keyed by type.
func ValidateAll(registry *Registry, data map[string]map[string]any) error {
	for nodeType, d := range data {
		meta, ok := registry.Get(nodeType)
		if !ok {
			return fmt.Errorf("unknown node type: %s", nodeType)
		}
		if err := ValidateNodeConfig(&meta, d); err != nil {
			return fmt.Errorf("node type %q: %w", nodeType, err)
		}
	}
	return nil
}
