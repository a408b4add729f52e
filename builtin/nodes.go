package builtin

import "github.com/agentstation/difyflow"

const since = "0.1.0"

var selectorSchema = map[string]any{
	"type":     "array",
	"items":    map[string]any{"type": "string"},
	"minItems": 2,
	"maxItems": 2,
}

// Catalog returns metadata for every node type the engine executes.
func Catalog() []NodeMetadata {
	return []NodeMetadata{
		startNode(),
		classifierNode(),
		retrievalNode(),
		llmNode(),
		codeNode(),
		answerNode(),
	}
}

func startNode() NodeMetadata {
	return NodeMetadata{
		Type:         string(difyflow.TypeStart),
		Category:     CategoryControl,
		Description:  "Entry point of the workflow; exactly one per graph",
		Routing:      "default edge",
		ConfigSchema: map[string]any{"type": "object"},
		Since:        since,
	}
}

func classifierNode() NodeMetadata {
	return NodeMetadata{
		Type:        string(difyflow.TypeQuestionClassifier),
		Category:    CategoryAI,
		Description: "Asks the language model to pick one class for the query and routes on the class id",
		Writes:      []string{"<id>.class"},
		Routing:     "edge whose sourceHandle equals the class id, else default edge",
		Gateway:     difyflow.GatewayLanguageModel,
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"classes": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"id"},
						"properties": map[string]any{
							"id":   map[string]any{"type": "string", "minLength": 1},
							"name": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
		Examples: []Example{
			{
				Name:        "Support triage",
				Description: "Route billing questions separately",
				Data: map[string]any{
					"type": "question-classifier",
					"classes": []map[string]any{
						{"id": "billing", "name": "Billing and refunds"},
						{"id": "other", "name": "Anything else"},
					},
				},
			},
		},
		Since: since,
	}
}

func retrievalNode() NodeMetadata {
	return NodeMetadata{
		Type:        string(difyflow.TypeKnowledgeRetrieval),
		Category:    CategoryData,
		Description: "Retrieves passages relevant to the query",
		Writes:      []string{"<id>.result"},
		Routing:     "default edge",
		Gateway:     difyflow.GatewayRetriever,
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dataset_ids":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"retrieval_mode": map[string]any{"type": "string", "enum": []string{"single", "multiple"}},
			},
		},
		Since: since,
	}
}

func llmNode() NodeMetadata {
	return NodeMetadata{
		Type:        string(difyflow.TypeLLM),
		Category:    CategoryAI,
		Description: "Calls the language model with the system prompt and the query",
		Writes:      []string{"<id>.text"},
		Routing:     "default edge",
		Gateway:     difyflow.GatewayLanguageModel,
		ConfigSchema: map[string]any{
			"type":     "object",
			"required": []string{"prompt_template"},
			"properties": map[string]any{
				"prompt_template": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type":     "object",
						"required": []string{"role", "text"},
						"properties": map[string]any{
							"role": map[string]any{"type": "string", "enum": []string{"system", "user", "assistant"}},
							"text": map[string]any{"type": "string"},
						},
					},
				},
				"context": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"enabled":           map[string]any{"type": "boolean"},
						"variable_selector": selectorSchema,
					},
				},
			},
		},
		Examples: []Example{
			{
				Name:        "Grounded answer",
				Description: "Inject retrieved passages into the system prompt",
				Data: map[string]any{
					"type":    "llm",
					"context": map[string]any{"enabled": true, "variable_selector": []string{"retrieval", "result"}},
					"prompt_template": []map[string]any{
						{"role": "system", "text": "Answer using: {{#context#}}"},
					},
				},
			},
		},
		Since: since,
	}
}

func codeNode() NodeMetadata {
	return NodeMetadata{
		Type:        string(difyflow.TypeCode),
		Category:    CategoryData,
		Description: "Runs a sandboxed Lua script whose main(inputs) result is stored as text",
		Writes:      []string{"<id>.result"},
		Routing:     "default edge",
		Gateway:     difyflow.GatewayScript,
		ConfigSchema: map[string]any{
			"type":     "object",
			"required": []string{"code"},
			"properties": map[string]any{
				"code":          map[string]any{"type": "string", "minLength": 1},
				"code_language": map[string]any{"type": "string"},
				"variables": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"variable", "value_selector"},
						"properties": map[string]any{
							"variable":       map[string]any{"type": "string", "minLength": 1},
							"value_selector": selectorSchema,
						},
					},
				},
			},
		},
		Examples: []Example{
			{
				Name:        "Uppercase",
				Description: "Shout the query back",
				Data: map[string]any{
					"type":          "code",
					"code_language": "lua",
					"code":          "function main(inputs) return string.upper(inputs.query) end",
					"variables": []map[string]any{
						{"variable": "query", "value_selector": []string{"sys", "query"}},
					},
				},
			},
		},
		Since: since,
	}
}

func answerNode() NodeMetadata {
	return NodeMetadata{
		Type:        string(difyflow.TypeAnswer),
		Category:    CategoryOutput,
		Description: "Ends the run with a literal or a single {{#node.field#}} reference",
		Routing:     "terminal",
		ConfigSchema: map[string]any{
			"type":     "object",
			"required": []string{"answer"},
			"properties": map[string]any{
				"answer": map[string]any{"type": "string"},
			},
		},
		Since: since,
	}
}
