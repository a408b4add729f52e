package yaml

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/agentstation/difyflow"
)

// NodeValidator checks the raw data of one node before the graph is built.
type NodeValidator func(nodeID string, data map[string]any) error

// Loader turns Dify DSL documents into difyflow graphs.
type Loader struct {
	parser *Parser
	store  *difyflow.GraphStore

	mu         sync.RWMutex
	validators map[string]NodeValidator
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithStore caches graphs loaded by LoadFile, keyed by absolute path.
func WithStore(store *difyflow.GraphStore) LoaderOption {
	return func(l *Loader) {
		l.store = store
	}
}

// WithParser replaces the default parser.
func WithParser(p *Parser) LoaderOption {
	return func(l *Loader) {
		l.parser = p
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		parser:     NewParser(),
		validators: make(map[string]NodeValidator),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterValidator installs a validator for a node type, replacing any
// previous one.
func (l *Loader) RegisterValidator(nodeType string, v NodeValidator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.validators[nodeType] = v
}

// Parser returns the loader's parser.
func (l *Loader) Parser() *Parser {
	return l.parser
}

// LoadFile loads the workflow stored in filename.
func (l *Loader) LoadFile(filename string) (*difyflow.Graph, error) {
	key, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if l.store != nil {
		if g, ok := l.store.Get(key); ok {
			return g, nil
		}
	}

	doc, err := l.parser.ParseFile(filename)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	g, err := l.Load(doc)
	if err != nil {
		return nil, err
	}

	if l.store != nil {
		l.store.Put(key, g)
	}
	return g, nil
}

// LoadString loads a workflow from a YAML string.
func (l *Loader) LoadString(s string) (*difyflow.Graph, error) {
	doc, err := l.parser.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("parse string: %w", err)
	}
	return l.Load(doc)
}

// Load converts a parsed document into a graph.
func (l *Loader) Load(doc *Document) (*difyflow.Graph, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	src := doc.Workflow.Graph
	nodes := make([]difyflow.Node, 0, len(src.Nodes))
	for _, n := range src.Nodes {
		if err := l.validateNode(n); err != nil {
			return nil, err
		}
		nodes = append(nodes, difyflow.Node{
			ID:    n.ID,
			Title: n.Data.Title,
			Data:  convertData(n.Data),
		})
	}

	edges := make([]difyflow.Edge, 0, len(src.Edges))
	for i, e := range src.Edges {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s-%d", e.Source, e.Target, i)
		}
		edges = append(edges, difyflow.Edge{
			ID:           id,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
		})
	}

	g, err := difyflow.NewGraph(nodes, edges, difyflow.WithMetadata(difyflow.Metadata{
		Name:        doc.App.Name,
		Description: doc.App.Description,
		Mode:        doc.App.Mode,
		Version:     doc.Version,
	}))
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return g, nil
}

func (l *Loader) validateNode(n Node) error {
	l.mu.RLock()
	v, ok := l.validators[n.Data.Type]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	raw, err := toMap(n.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	if err := v(n.ID, raw); err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	return nil
}

// convertData maps DSL node data onto the engine's node variants.
func convertData(d NodeData) difyflow.NodeData {
	switch difyflow.NodeType(d.Type) {
	case difyflow.TypeStart:
		return difyflow.StartData{}
	case difyflow.TypeQuestionClassifier:
		classes := make([]difyflow.Class, 0, len(d.Classes))
		for _, c := range d.Classes {
			classes = append(classes, difyflow.Class{ID: c.ID, Name: c.Name})
		}
		return difyflow.ClassifierData{Classes: classes}
	case difyflow.TypeKnowledgeRetrieval:
		return difyflow.RetrievalData{DatasetIDs: d.DatasetIDs, Mode: d.RetrievalMode}
	case difyflow.TypeLLM:
		out := difyflow.LLMData{}
		if d.Context != nil {
			out.Context = &difyflow.ContextRef{
				Enabled:          d.Context.Enabled,
				VariableSelector: d.Context.VariableSelector,
			}
		}
		for _, t := range d.PromptTemplate {
			out.PromptTemplates = append(out.PromptTemplates, difyflow.PromptTemplate{
				Role: difyflow.Role(t.Role),
				Text: t.Text,
			})
		}
		if d.Model != nil {
			out.Model = difyflow.ModelRef{Provider: d.Model.Provider, Name: d.Model.Name, Mode: d.Model.Mode}
		}
		return out
	case difyflow.TypeAnswer:
		return difyflow.AnswerData{Answer: d.Answer}
	case difyflow.TypeCode:
		out := difyflow.CodeData{Language: d.CodeLanguage, Script: d.Code}
		for _, v := range d.Variables {
			out.Inputs = append(out.Inputs, difyflow.CodeInput{Name: v.Variable, Selector: v.ValueSelector})
		}
		return out
	default:
		return difyflow.UnsupportedData{RawType: d.Type}
	}
}

// toMap renders node data as the generic map validators receive.
func toMap(d NodeData) (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode node data: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode node data: %w", err)
	}
	return m, nil
}
