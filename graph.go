package difyflow

import (
	"fmt"
	"slices"
	"sort"
)

// NodeType names the processing role of a node.
type NodeType string

// Node types understood by the engine.
const (
	TypeStart              NodeType = "start"
	TypeQuestionClassifier NodeType = "question-classifier"
	TypeKnowledgeRetrieval NodeType = "knowledge-retrieval"
	TypeLLM                NodeType = "llm"
	TypeAnswer             NodeType = "answer"
	TypeCode               NodeType = "code"
)

// Role identifies the author of a prompt message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// NodeData is the type-specific payload of a node.
//
// The set of implementations is closed: StartData, ClassifierData,
// RetrievalData, LLMData, AnswerData, CodeData and UnsupportedData.
type NodeData interface {
	Type() NodeType
	clone() NodeData
}

// StartData marks the entry node of a workflow.
type StartData struct{}

// ClassifierData configures a question-classifier node.
type ClassifierData struct {
	Classes []Class
}

// Class is one category a classifier may choose.
type Class struct {
	ID   string
	Name string
}

// RetrievalData configures a knowledge-retrieval node.
type RetrievalData struct {
	DatasetIDs []string
	Mode       string
}

// LLMData configures an llm node.
type LLMData struct {
	Context         *ContextRef
	PromptTemplates []PromptTemplate
	Model           ModelRef
}

// ContextRef points an llm node at a variable produced by an earlier node.
type ContextRef struct {
	Enabled bool
	// VariableSelector is a [nodeID, variableName] pair.
	VariableSelector []string
}

// PromptTemplate is one message of an llm node's prompt.
type PromptTemplate struct {
	Role Role
	Text string
}

// ModelRef records which model a node was designed against.
type ModelRef struct {
	Provider string
	Name     string
	Mode     string
}

// AnswerData configures an answer node.
type AnswerData struct {
	// Answer is a literal or a single {{#key#}} reference.
	Answer string
}

// CodeData configures a code node.
type CodeData struct {
	Language string
	Script   string
	Inputs   []CodeInput
}

// CodeInput binds a script argument to a variable selector.
type CodeInput struct {
	Name     string
	Selector []string
}

// UnsupportedData carries a node type the engine has no handler for.
type UnsupportedData struct {
	RawType string
}

func (StartData) Type() NodeType { return TypeStart }
func (ClassifierData) Type() NodeType { return TypeQuestionClassifier }
func (RetrievalData) Type() NodeType { return TypeKnowledgeRetrieval }
func (LLMData) Type() NodeType { return TypeLLM }
func (AnswerData) Type() NodeType { return TypeAnswer }
func (CodeData) Type() NodeType { return TypeCode }
func (d UnsupportedData) Type() NodeType { return NodeType(d.RawType) }

func (d StartData) clone() NodeData { return d }

func (d ClassifierData) clone() NodeData {
	return ClassifierData{Classes: slices.Clone(d.Classes)}
}

func (d RetrievalData) clone() NodeData {
	return RetrievalData{DatasetIDs: slices.Clone(d.DatasetIDs), Mode: d.Mode}
}

func (d LLMData) clone() NodeData {
	out := LLMData{
		PromptTemplates: slices.Clone(d.PromptTemplates),
		Model:           d.Model,
	}
	if d.Context != nil {
		out.Context = &ContextRef{
			Enabled:          d.Context.Enabled,
			VariableSelector: slices.Clone(d.Context.VariableSelector),
		}
	}
	return out
}

func (d AnswerData) clone() NodeData { return d }

func (d CodeData) clone() NodeData {
	out := CodeData{Language: d.Language, Script: d.Script}
	if d.Inputs != nil {
		out.Inputs = make([]CodeInput, len(d.Inputs))
		for i, in := range d.Inputs {
			out.Inputs[i] = CodeInput{Name: in.Name, Selector: slices.Clone(in.Selector)}
		}
	}
	return out
}

func (d UnsupportedData) clone() NodeData { return d }

// Node is a unit of work in a workflow graph.
type Node struct {
	ID    string
	Title string
	Data  NodeData
}

// Type returns the node's type, or "" when it has no data.
func (n Node) Type() NodeType {
	if n.Data == nil {
		return ""
	}
	return n.Data.Type()
}

func (n Node) copy() Node {
	if n.Data != nil {
		n.Data = n.Data.clone()
	}
	return n
}

// Edge is a directed transition between two nodes.
type Edge struct {
	ID     string
	Source string
	Target string
	// SourceHandle is an optional routing label, empty when absent.
	SourceHandle string
}

// Metadata describes the workflow a graph was loaded from.
type Metadata struct {
	Name        string
	Description string
	Mode        string
	Version     string
}

// GraphOption configures a Graph.
type GraphOption func(*Metadata)

// WithName sets the workflow name.
func WithName(name string) GraphOption {
	return func(m *Metadata) {
		m.Name = name
	}
}

// WithMetadata replaces the workflow metadata.
func WithMetadata(md Metadata) GraphOption {
	return func(m *Metadata) {
		*m = md
	}
}

// Graph is an immutable, validated workflow graph.
// A Graph may be shared by any number of concurrent runs.
type Graph struct {
	meta     Metadata
	nodes    map[string]Node
	order    []string
	edges    []Edge
	bySource map[string][]Edge
	start    []string
}

// NewGraph validates nodes and edges and builds a Graph.
//
// It fails with a *GraphError when node ids are empty or repeated, when
// there is not exactly one start node, or when an edge references a node
// that doesn't exist. Input slices are copied; later changes by the caller
// are not observed.
func NewGraph(nodes []Node, edges []Edge, opts ...GraphOption) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]Node, len(nodes)),
		order:    make([]string, 0, len(nodes)),
		edges:    make([]Edge, len(edges)),
		bySource: make(map[string][]Edge),
	}
	for _, opt := range opts {
		opt(&g.meta)
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, &GraphError{Kind: ErrInvalidNode, Message: "node has empty id"}
		}
		if n.Data == nil {
			return nil, &GraphError{Kind: ErrInvalidNode, NodeID: n.ID, Message: "node has no data"}
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, &GraphError{Kind: ErrDuplicateNode, NodeID: n.ID, Message: "id declared twice"}
		}
		g.nodes[n.ID] = n.copy()
		g.order = append(g.order, n.ID)
		if n.Type() == TypeStart {
			g.start = append(g.start, n.ID)
		}
	}

	if len(g.start) != 1 {
		return nil, &GraphError{
			Kind:    ErrNoStartNode,
			Message: fmt.Sprintf("found %d start nodes, want exactly 1", len(g.start)),
		}
	}

	copy(g.edges, edges)
	for _, e := range g.edges {
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, &GraphError{Kind: ErrDanglingEdge, EdgeID: e.ID, Message: "unknown source " + e.Source}
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, &GraphError{Kind: ErrDanglingEdge, EdgeID: e.ID, Message: "unknown target " + e.Target}
		}
		g.bySource[e.Source] = append(g.bySource[e.Source], e)
	}

	return g, nil
}

// Metadata returns the workflow metadata.
func (g *Graph) Metadata() Metadata {
	return g.meta
}

// Name returns the workflow name.
func (g *Graph) Name() string {
	return g.meta.Name
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// FindStart returns the unique start node.
func (g *Graph) FindStart() (Node, error) {
	if len(g.start) != 1 {
		return Node{}, &GraphError{
			Kind:    ErrNoStartNode,
			Message: fmt.Sprintf("found %d start nodes, want exactly 1", len(g.start)),
		}
	}
	return g.nodes[g.start[0]].copy(), nil
}

// FindByID returns the node with the given id.
func (g *Graph) FindByID(id string) (Node, error) {
	n, err := g.node(id)
	if err != nil {
		return Node{}, err
	}
	return n.copy(), nil
}

// node returns the stored node without copying its data.
// Callers inside the package must not modify the result.
func (g *Graph) node(id string) (Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, &GraphError{Kind: ErrUnknownNode, NodeID: id, Message: "not in graph"}
	}
	return n, nil
}

// EdgesFrom returns the edges leaving a node, in declaration order.
func (g *Graph) EdgesFrom(id string) []Edge {
	return slices.Clone(g.bySource[id])
}

// Nodes returns every node in declaration order.
// Node data is copied so the graph cannot be modified through the result.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].copy())
	}
	return out
}

// Edges returns every edge in declaration order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// NodesOfType returns the ids of all nodes with the given type, sorted.
func (g *Graph) NodesOfType(t NodeType) []string {
	var ids []string
	for id, n := range g.nodes {
		if n.Type() == t {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
