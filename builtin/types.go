// Package builtin describes the node types the engine understands and
// validates their DSL configuration.
package builtin

// NodeMetadata describes a node type.
type NodeMetadata struct {
	Type         string         `json:"type" yaml:"type"`
	Category     string         `json:"category" yaml:"category"`
	Description  string         `json:"description" yaml:"description"`
	Writes       []string       `json:"writes,omitempty" yaml:"writes,omitempty"`
	Routing      string         `json:"routing" yaml:"routing"`
	Gateway      string         `json:"gateway,omitempty" yaml:"gateway,omitempty"`
	ConfigSchema map[string]any `json:"configSchema" yaml:"configSchema"`
	Examples     []Example      `json:"examples,omitempty" yaml:"examples,omitempty"`
	Since        string         `json:"since,omitempty" yaml:"since,omitempty"`
}

// Example shows a node's DSL data.
type Example struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Data        map[string]any `json:"data" yaml:"data"`
}

// Node categories.
const (
	CategoryControl = "control"
	CategoryAI      = "ai"
	CategoryData    = "data"
	CategoryOutput  = "output"
)
