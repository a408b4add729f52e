package difyflow_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/agentstation/difyflow"
)

func TestNewGraphValidation(t *testing.T) {
	start := difyflow.Node{ID: "start", Data: difyflow.StartData{}}
	answer := difyflow.Node{ID: "answer", Data: difyflow.AnswerData{Answer: "hi"}}

	tests := []struct {
		name    string
		nodes   []difyflow.Node
		edges   []difyflow.Edge
		wantErr error
	}{
		{
			name:  "valid",
			nodes: []difyflow.Node{start, answer},
			edges: []difyflow.Edge{{ID: "e1", Source: "start", Target: "answer"}},
		},
		{
			name:    "no start node",
			nodes:   []difyflow.Node{answer},
			wantErr: difyflow.ErrNoStartNode,
		},
		{
			name:    "two start nodes",
			nodes:   []difyflow.Node{start, {ID: "start2", Data: difyflow.StartData{}}},
			wantErr: difyflow.ErrNoStartNode,
		},
		{
			name:    "duplicate id",
			nodes:   []difyflow.Node{start, answer, {ID: "answer", Data: difyflow.AnswerData{}}},
			wantErr: difyflow.ErrDuplicateNode,
		},
		{
			name:    "empty id",
			nodes:   []difyflow.Node{start, {Data: difyflow.AnswerData{}}},
			wantErr: difyflow.ErrInvalidNode,
		},
		{
			name:    "missing data",
			nodes:   []difyflow.Node{start, {ID: "x"}},
			wantErr: difyflow.ErrInvalidNode,
		},
		{
			name:    "dangling target",
			nodes:   []difyflow.Node{start},
			edges:   []difyflow.Edge{{ID: "e1", Source: "start", Target: "ghost"}},
			wantErr: difyflow.ErrDanglingEdge,
		},
		{
			name:    "dangling source",
			nodes:   []difyflow.Node{start, answer},
			edges:   []difyflow.Edge{{ID: "e1", Source: "ghost", Target: "answer"}},
			wantErr: difyflow.ErrDanglingEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := difyflow.NewGraph(tt.nodes, tt.edges)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewGraph() error = %v", err)
				}
				if g.Len() != len(tt.nodes) {
					t.Errorf("Len() = %d, want %d", g.Len(), len(tt.nodes))
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewGraph() error = %v, want %v", err, tt.wantErr)
			}
			var gerr *difyflow.GraphError
			if !errors.As(err, &gerr) {
				t.Fatalf("error %T is not a *GraphError", err)
			}
		})
	}
}

func TestGraphLookups(t *testing.T) {
	g, err := difyflow.NewGraph(
		[]difyflow.Node{
			{ID: "start", Title: "Start", Data: difyflow.StartData{}},
			{ID: "c", Data: difyflow.ClassifierData{}},
			{ID: "x", Data: difyflow.AnswerData{Answer: "x"}},
			{ID: "y", Data: difyflow.AnswerData{Answer: "y"}},
		},
		[]difyflow.Edge{
			{ID: "e1", Source: "start", Target: "c"},
			{ID: "e2", Source: "c", Target: "x", SourceHandle: "1"},
			{ID: "e3", Source: "c", Target: "y"},
		},
		difyflow.WithName("lookup"),
	)
	if err != nil {
		t.Fatal(err)
	}

	start, err := g.FindStart()
	if err != nil || start.ID != "start" || start.Title != "Start" {
		t.Errorf("FindStart() = %+v, %v", start, err)
	}

	n, err := g.FindByID("x")
	if err != nil || n.Type() != difyflow.TypeAnswer {
		t.Errorf("FindByID(x) = %+v, %v", n, err)
	}

	if _, err := g.FindByID("missing"); !errors.Is(err, difyflow.ErrUnknownNode) {
		t.Errorf("FindByID(missing) error = %v, want ErrUnknownNode", err)
	}

	edges := g.EdgesFrom("c")
	if len(edges) != 2 || edges[0].ID != "e2" || edges[1].ID != "e3" {
		t.Errorf("EdgesFrom(c) = %+v, want [e2 e3] in order", edges)
	}
	if got := g.EdgesFrom("x"); len(got) != 0 {
		t.Errorf("EdgesFrom(x) = %+v, want none", got)
	}

	if got := g.NodesOfType(difyflow.TypeAnswer); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("NodesOfType(answer) = %v", got)
	}
	if g.Name() != "lookup" {
		t.Errorf("Name() = %q, want lookup", g.Name())
	}
}

func TestZeroGraphHasNoStart(t *testing.T) {
	var g difyflow.Graph
	if _, err := g.FindStart(); !errors.Is(err, difyflow.ErrNoStartNode) {
		t.Errorf("FindStart() error = %v, want ErrNoStartNode", err)
	}
}

func TestGraphIsolatedFromCaller(t *testing.T) {
	classes := []difyflow.Class{{ID: "a", Name: "A"}}
	nodes := []difyflow.Node{
		{ID: "start", Data: difyflow.StartData{}},
		{ID: "c", Data: difyflow.ClassifierData{Classes: classes}},
	}
	edges := []difyflow.Edge{{ID: "e1", Source: "start", Target: "c"}}

	g, err := difyflow.NewGraph(nodes, edges)
	if err != nil {
		t.Fatal(err)
	}

	classes[0].ID = "mutated"
	edges[0].Target = "mutated"
	nodes[1].ID = "mutated"

	n, err := g.FindByID("c")
	if err != nil {
		t.Fatal(err)
	}
	if got := n.Data.(difyflow.ClassifierData).Classes[0].ID; got != "a" {
		t.Errorf("class id = %q, want a", got)
	}
	if got := g.Edges()[0].Target; got != "c" {
		t.Errorf("edge target = %q, want c", got)
	}

	// Mutating accessor results must not leak back either.
	out := g.Nodes()
	out[1].Data.(difyflow.ClassifierData).Classes[0].ID = "leak"
	g.EdgesFrom("start")[0].Target = "leak"

	n, _ = g.FindByID("c")
	if got := n.Data.(difyflow.ClassifierData).Classes[0].ID; got != "a" {
		t.Errorf("class id after Nodes() mutation = %q, want a", got)
	}
	if got := g.EdgesFrom("start")[0].Target; got != "c" {
		t.Errorf("edge target after EdgesFrom() mutation = %q, want c", got)
	}
}
