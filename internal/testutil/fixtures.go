package testutil

import (
	"testing"

	"github.com/agentstation/difyflow"
)

// Fixture node ids.
const (
	StartID      = "start"
	ClassifierID = "classifier"
	RetrievalID  = "retrieval"
	LLMID        = "llmNode"
	AnswerID     = "answer"
)

// BillingQuery is the query of the billing scenario.
const BillingQuery = "Why was I charged twice?"

// BillingAnswer is what the billing scenario's language model replies.
const BillingAnswer = "Refunds process in 3 days."

// BillingGraph builds start -> classifier(billing, other) -> llm -> answer.
// Both classes route to the llm node.
func BillingGraph(t testing.TB) *difyflow.Graph {
	t.Helper()
	return MustGraph(t,
		[]difyflow.Node{
			{ID: StartID, Title: "Start", Data: difyflow.StartData{}},
			{ID: ClassifierID, Title: "Classify", Data: difyflow.ClassifierData{Classes: []difyflow.Class{
				{ID: "billing", Name: "Billing"},
				{ID: "other", Name: "Other"},
			}}},
			{ID: LLMID, Title: "Reply", Data: difyflow.LLMData{
				Context: &difyflow.ContextRef{Enabled: true, VariableSelector: []string{RetrievalID, "result"}},
				PromptTemplates: []difyflow.PromptTemplate{
					{Role: difyflow.RoleSystem, Text: "Answer about {{#context#}}"},
				},
			}},
			{ID: AnswerID, Title: "Answer", Data: difyflow.AnswerData{Answer: "{{#llmNode.text#}}"}},
		},
		[]difyflow.Edge{
			{ID: "e1", Source: StartID, Target: ClassifierID},
			{ID: "e2", Source: ClassifierID, Target: LLMID, SourceHandle: "billing"},
			{ID: "e3", Source: ClassifierID, Target: LLMID, SourceHandle: "other"},
			{ID: "e4", Source: LLMID, Target: AnswerID},
		},
	)
}

// BillingModel answers the classifier with "billing" and the llm node with
// BillingAnswer. It is safe for concurrent runs.
func BillingModel() *MockLanguageModel {
	return NewMockLanguageModel().WithHandler(func(messages []difyflow.Message) (string, error) {
		if len(messages) == 1 {
			return "billing", nil
		}
		return BillingAnswer, nil
	})
}

// RAGGraph builds start -> retrieval -> llm(context=retrieval.result) -> answer.
func RAGGraph(t testing.TB) *difyflow.Graph {
	t.Helper()
	return MustGraph(t,
		[]difyflow.Node{
			{ID: StartID, Data: difyflow.StartData{}},
			{ID: RetrievalID, Data: difyflow.RetrievalData{DatasetIDs: []string{"kb-1"}}},
			{ID: LLMID, Data: difyflow.LLMData{
				Context: &difyflow.ContextRef{Enabled: true, VariableSelector: []string{RetrievalID, "result"}},
				PromptTemplates: []difyflow.PromptTemplate{
					{Role: difyflow.RoleSystem, Text: "Use: {{#context#}}"},
				},
			}},
			{ID: AnswerID, Data: difyflow.AnswerData{Answer: "{{#llmNode.text#}}"}},
		},
		Chain(StartID, RetrievalID, LLMID, AnswerID),
	)
}

// CycleGraph builds start -> a -> b -> a with no answer node.
func CycleGraph(t testing.TB) *difyflow.Graph {
	t.Helper()
	return MustGraph(t,
		[]difyflow.Node{
			{ID: StartID, Data: difyflow.StartData{}},
			{ID: "a", Data: difyflow.RetrievalData{}},
			{ID: "b", Data: difyflow.RetrievalData{}},
		},
		append(Chain(StartID, "a", "b"), difyflow.Edge{ID: "back", Source: "b", Target: "a"}),
	)
}

// Chain connects ids in order with unlabeled edges.
func Chain(ids ...string) []difyflow.Edge {
	var edges []difyflow.Edge
	for i := 1; i < len(ids); i++ {
		edges = append(edges, difyflow.Edge{
			ID:     ids[i-1] + "->" + ids[i],
			Source: ids[i-1],
			Target: ids[i],
		})
	}
	return edges
}

// MustGraph builds a graph or fails the test.
func MustGraph(t testing.TB, nodes []difyflow.Node, edges []difyflow.Edge) *difyflow.Graph {
	t.Helper()
	g, err := difyflow.NewGraph(nodes, edges)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	return g
}
