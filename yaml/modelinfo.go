package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// ModelInfo describes the model configuration of one llm node.
type ModelInfo struct {
	NodeID          string           `json:"nodeId" yaml:"nodeId"`
	Title           string           `json:"title,omitempty" yaml:"title,omitempty"`
	Provider        string           `json:"provider" yaml:"provider"`
	ModelName       string           `json:"modelName" yaml:"modelName"`
	Mode            string           `json:"mode,omitempty" yaml:"mode,omitempty"`
	PromptTemplates []PromptTemplate `json:"promptTemplates" yaml:"promptTemplates"`
}

var (
	llmNodesPath  = jp.MustParseString("$.workflow.graph.nodes[?(@.data.type == 'llm')]")
	idPath        = jp.MustParseString("$.id")
	titlePath     = jp.MustParseString("$.data.title")
	providerPath  = jp.MustParseString("$.data.model.provider")
	modelNamePath = jp.MustParseString("$.data.model.name")
	modePath      = jp.MustParseString("$.data.model.mode")
	templatesPath = jp.MustParseString("$.data.prompt_template[*]")
	rolePath      = jp.MustParseString("$.role")
	textPath      = jp.MustParseString("$.text")
)

// ExtractModelInfo lists provider, model and prompt templates of every llm
// node in declaration order.
func ExtractModelInfo(doc *Document) ([]ModelInfo, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	tree, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	nodes := llmNodesPath.Get(tree)
	infos := make([]ModelInfo, 0, len(nodes))
	for _, n := range nodes {
		info := ModelInfo{
			NodeID:    str(idPath.First(n)),
			Title:     str(titlePath.First(n)),
			Provider:  str(providerPath.First(n)),
			ModelName: str(modelNamePath.First(n)),
			Mode:      str(modePath.First(n)),
		}
		for _, t := range templatesPath.Get(n) {
			info.PromptTemplates = append(info.PromptTemplates, PromptTemplate{
				Role: str(rolePath.First(t)),
				Text: str(textPath.First(t)),
			})
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
