/*
Package difyflow executes Dify-style workflow graphs against a user query.

A workflow is a directed graph of typed nodes: a single start node,
question classifiers, knowledge retrieval, language model calls, code
nodes and answer nodes. The engine walks the graph one node at a time,
threading intermediate results through a per-run variable context, until
an answer node produces the final text or a node has no outgoing edge.

Building a graph:

	g, err := difyflow.NewGraph(
		[]difyflow.Node{
			{ID: "start", Data: difyflow.StartData{}},
			{ID: "llm", Data: difyflow.LLMData{
				PromptTemplates: []difyflow.PromptTemplate{
					{Role: difyflow.RoleSystem, Text: "You are a support agent."},
				},
			}},
			{ID: "answer", Data: difyflow.AnswerData{Answer: "{{#llm.text#}}"}},
		},
		[]difyflow.Edge{
			{ID: "e1", Source: "start", Target: "llm"},
			{ID: "e2", Source: "llm", Target: "answer"},
		},
	)

Running it:

	engine := difyflow.NewEngine(model, retriever, difyflow.WithMaxSteps(50))
	answer, err := engine.Execute(ctx, g, "Why was I charged twice?")

Graphs are immutable and may be shared by concurrent runs. Workflows are
usually loaded from Dify DSL files with package yaml; language model,
retrieval and script adapters live in packages gateway and script.

Routing:

Classifier nodes route on their model reply. The first outgoing edge whose
source handle equals the trimmed reply is followed; otherwise the first
outgoing edge in declaration order is the default. Every other node follows
its default edge.

Errors:

Structural problems are reported by NewGraph as *GraphError. Runs fail with
*NodeError, *GatewayError or *ExecutionError; all of them unwrap to the
package's sentinel errors for use with errors.Is.
*/
package difyflow
