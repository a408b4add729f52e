// Package yaml loads Dify DSL workflow exports into difyflow graphs.
package yaml

import (
	"errors"
	"fmt"
)

// Document is a Dify DSL export.
type Document struct {
	App      App      `yaml:"app" json:"app"`
	Kind     string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Version  string   `yaml:"version,omitempty" json:"version,omitempty"`
	Workflow Workflow `yaml:"workflow" json:"workflow"`
}

// App describes the application that owns the workflow.
type App struct {
	Name           string `yaml:"name" json:"name"`
	Description    string `yaml:"description,omitempty" json:"description,omitempty"`
	Mode           string `yaml:"mode,omitempty" json:"mode,omitempty"`
	Icon           string `yaml:"icon,omitempty" json:"icon,omitempty"`
	IconBackground string `yaml:"icon_background,omitempty" json:"icon_background,omitempty"`
}

// Workflow holds the graph and its surrounding settings.
type Workflow struct {
	Graph                 Graph          `yaml:"graph" json:"graph"`
	Features              map[string]any `yaml:"features,omitempty" json:"features,omitempty"`
	ConversationVariables []any          `yaml:"conversation_variables,omitempty" json:"conversation_variables,omitempty"`
	EnvironmentVariables  []any          `yaml:"environment_variables,omitempty" json:"environment_variables,omitempty"`
}

// Graph lists nodes and edges in declaration order.
type Graph struct {
	Nodes []Node `yaml:"nodes" json:"nodes"`
	Edges []Edge `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// Node is one workflow node. Its processing type lives in Data.Type; the
// outer Type is the editor's render type, usually "custom".
type Node struct {
	ID   string   `yaml:"id" json:"id"`
	Type string   `yaml:"type,omitempty" json:"type,omitempty"`
	Data NodeData `yaml:"data" json:"data"`
}

// NodeData is the union of the fields used by every node type.
type NodeData struct {
	Type  string `yaml:"type" json:"type"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	Desc  string `yaml:"desc,omitempty" json:"desc,omitempty"`

	// question-classifier
	Classes []Class `yaml:"classes,omitempty" json:"classes,omitempty"`

	// knowledge-retrieval
	DatasetIDs    []string `yaml:"dataset_ids,omitempty" json:"dataset_ids,omitempty"`
	RetrievalMode string   `yaml:"retrieval_mode,omitempty" json:"retrieval_mode,omitempty"`

	// llm
	Context        *Context         `yaml:"context,omitempty" json:"context,omitempty"`
	PromptTemplate []PromptTemplate `yaml:"prompt_template,omitempty" json:"prompt_template,omitempty"`
	Model          *Model           `yaml:"model,omitempty" json:"model,omitempty"`

	// answer
	Answer string `yaml:"answer,omitempty" json:"answer,omitempty"`

	// code
	Code         string     `yaml:"code,omitempty" json:"code,omitempty"`
	CodeLanguage string     `yaml:"code_language,omitempty" json:"code_language,omitempty"`
	Variables    []Variable `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// Class is a classifier category.
type Class struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Context selects the variable an llm node injects into its prompt.
type Context struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	VariableSelector []string `yaml:"variable_selector,omitempty" json:"variable_selector,omitempty"`
}

// PromptTemplate is one prompt message.
type PromptTemplate struct {
	ID   string `yaml:"id,omitempty" json:"id,omitempty"`
	Role string `yaml:"role" json:"role"`
	Text string `yaml:"text" json:"text"`
}

// Model names the model an llm node was designed for.
type Model struct {
	Provider         string         `yaml:"provider,omitempty" json:"provider,omitempty"`
	Name             string         `yaml:"name,omitempty" json:"name,omitempty"`
	Mode             string         `yaml:"mode,omitempty" json:"mode,omitempty"`
	CompletionParams map[string]any `yaml:"completion_params,omitempty" json:"completion_params,omitempty"`
}

// Variable binds a code input to a value selector.
type Variable struct {
	Variable      string   `yaml:"variable" json:"variable"`
	ValueSelector []string `yaml:"value_selector" json:"value_selector"`
}

// Edge connects two nodes.
type Edge struct {
	ID           string `yaml:"id" json:"id"`
	Source       string `yaml:"source" json:"source"`
	Target       string `yaml:"target" json:"target"`
	SourceHandle string `yaml:"sourceHandle,omitempty" json:"sourceHandle,omitempty"`
	TargetHandle string `yaml:"targetHandle,omitempty" json:"targetHandle,omitempty"`
}

// ErrInvalidDocument is returned for documents that fail validation.
var ErrInvalidDocument = errors.New("yaml: invalid document")

// Validate checks the fields the loader relies on. Graph-level rules such as
// the single start node are enforced when the graph is built.
func (d *Document) Validate() error {
	if len(d.Workflow.Graph.Nodes) == 0 {
		return fmt.Errorf("%w: workflow has no nodes", ErrInvalidDocument)
	}
	for i, n := range d.Workflow.Graph.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node %d has no id", ErrInvalidDocument, i)
		}
		if n.Data.Type == "" {
			return fmt.Errorf("%w: node %s has no data.type", ErrInvalidDocument, n.ID)
		}
	}
	for i, e := range d.Workflow.Graph.Edges {
		if e.Source == "" || e.Target == "" {
			return fmt.Errorf("%w: edge %d needs source and target", ErrInvalidDocument, i)
		}
	}
	return nil
}
