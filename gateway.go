package difyflow

import "context"

// Message is one entry of a language model exchange.
type Message struct {
	Role Role
	Text string
}

// LanguageModel completes an ordered exchange of messages.
//
// Implementations are called synchronously by the engine, at most once at a
// time per run. Retries, if any, belong to the implementation.
type LanguageModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Retriever returns passage text relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// ScriptRunner executes the script of a code node with its resolved inputs.
type ScriptRunner interface {
	Run(ctx context.Context, script string, inputs map[string]string) (string, error)
}

// LanguageModelFunc adapts a function to the LanguageModel interface.
type LanguageModelFunc func(ctx context.Context, messages []Message) (string, error)

// Complete calls f(ctx, messages).
func (f LanguageModelFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, query string) (string, error)

// Retrieve calls f(ctx, query).
func (f RetrieverFunc) Retrieve(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// ScriptRunnerFunc adapts a function to the ScriptRunner interface.
type ScriptRunnerFunc func(ctx context.Context, script string, inputs map[string]string) (string, error)

// Run calls f(ctx, script, inputs).
func (f ScriptRunnerFunc) Run(ctx context.Context, script string, inputs map[string]string) (string, error) {
	return f(ctx, script, inputs)
}
