package difyflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentstation/difyflow"
)

func ExampleEngine_Execute() {
	g, err := difyflow.NewGraph(
		[]difyflow.Node{
			{ID: "start", Data: difyflow.StartData{}},
			{ID: "classify", Data: difyflow.ClassifierData{Classes: []difyflow.Class{
				{ID: "billing", Name: "Billing questions"},
				{ID: "other", Name: "Everything else"},
			}}},
			{ID: "billingAnswer", Data: difyflow.AnswerData{Answer: "Refunds process in 3 days."}},
			{ID: "otherAnswer", Data: difyflow.AnswerData{Answer: "Please contact support."}},
		},
		[]difyflow.Edge{
			{ID: "e1", Source: "start", Target: "classify"},
			{ID: "e2", Source: "classify", Target: "otherAnswer", SourceHandle: "other"},
			{ID: "e3", Source: "classify", Target: "billingAnswer", SourceHandle: "billing"},
		},
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	model := difyflow.LanguageModelFunc(func(ctx context.Context, messages []difyflow.Message) (string, error) {
		if strings.Contains(messages[0].Text, "charged") {
			return "billing", nil
		}
		return "other", nil
	})
	engine := difyflow.NewEngine(model, nil)

	for _, q := range []string{"Why was I charged twice?", "Where is my parcel?"} {
		answer, err := engine.Execute(context.Background(), g, q)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Println(answer)
	}
	// Output:
	// Refunds process in 3 days.
	// Please contact support.
}

func ExampleResolveReference() {
	vars := difyflow.NewVariables("hi")
	vars.Set("llm.text", "hello")

	fmt.Println(difyflow.ResolveReference("{{#llm.text#}}", vars))
	fmt.Println(difyflow.ResolveReference("{{#missing.text#}}", vars))
	fmt.Println(difyflow.ResolveReference("literal", vars))
	// Output:
	// hello
	// unable to resolve answer content
	// literal
}

func ExampleNewGraph_validation() {
	_, err := difyflow.NewGraph(
		[]difyflow.Node{{ID: "start", Data: difyflow.StartData{}}},
		[]difyflow.Edge{{ID: "e1", Source: "start", Target: "ghost"}},
	)
	fmt.Println(errors.Is(err, difyflow.ErrDanglingEdge))
	fmt.Println(err)
	// Output:
	// true
	// difyflow: edge references unknown node: edge e1: unknown target ghost
}

func ExampleWithMaxSteps() {
	g, _ := difyflow.NewGraph(
		[]difyflow.Node{
			{ID: "start", Data: difyflow.StartData{}},
			{ID: "a", Data: difyflow.RetrievalData{}},
			{ID: "b", Data: difyflow.RetrievalData{}},
		},
		[]difyflow.Edge{
			{ID: "e1", Source: "start", Target: "a"},
			{ID: "e2", Source: "a", Target: "b"},
			{ID: "e3", Source: "b", Target: "a"},
		},
	)
	retriever := difyflow.RetrieverFunc(func(ctx context.Context, query string) (string, error) {
		return "passage", nil
	})

	engine := difyflow.NewEngine(nil, retriever, difyflow.WithMaxSteps(20))
	_, err := engine.Execute(context.Background(), g, "loop")
	fmt.Println(err)
	// Output:
	// difyflow: step limit exceeded after 20 steps at node b
}
