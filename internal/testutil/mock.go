package testutil

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/agentstation/difyflow"
)

// MockLanguageModel is a scripted difyflow.LanguageModel.
//
// Replies are served in order; once exhausted the last reply repeats. A
// handler, when set, takes precedence over scripted replies.
type MockLanguageModel struct {
	mu      sync.Mutex
	replies []string
	next    int
	handler func(messages []difyflow.Message) (string, error)
	err     error
	delay   time.Duration
	calls   [][]difyflow.Message
}

// NewMockLanguageModel creates a model answering with replies.
func NewMockLanguageModel(replies ...string) *MockLanguageModel {
	return &MockLanguageModel{replies: replies}
}

// WithHandler computes replies from the messages.
func (m *MockLanguageModel) WithHandler(fn func(messages []difyflow.Message) (string, error)) *MockLanguageModel {
	m.handler = fn
	return m
}

// WithError makes every call fail with err.
func (m *MockLanguageModel) WithError(err error) *MockLanguageModel {
	m.err = err
	return m
}

// WithDelay makes every call block for d or until its context is done.
func (m *MockLanguageModel) WithDelay(d time.Duration) *MockLanguageModel {
	m.delay = d
	return m
}

// Complete implements difyflow.LanguageModel.
func (m *MockLanguageModel) Complete(ctx context.Context, messages []difyflow.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, slices.Clone(messages))
	m.mu.Unlock()

	if err := sleep(ctx, m.delay); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	if m.handler != nil {
		return m.handler(messages)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[min(m.next, len(m.replies)-1)]
	m.next++
	return reply, nil
}

// Calls returns the messages of every call so far.
func (m *MockLanguageModel) Calls() [][]difyflow.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount returns the number of calls so far.
func (m *MockLanguageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockRetriever is a difyflow.Retriever returning a fixed passage.
type MockRetriever struct {
	mu      sync.Mutex
	passage string
	err     error
	delay   time.Duration
	queries []string
}

// NewMockRetriever creates a retriever answering with passage.
func NewMockRetriever(passage string) *MockRetriever {
	return &MockRetriever{passage: passage}
}

// WithError makes every call fail with err.
func (r *MockRetriever) WithError(err error) *MockRetriever {
	r.err = err
	return r
}

// WithDelay makes every call block for d or until its context is done.
func (r *MockRetriever) WithDelay(d time.Duration) *MockRetriever {
	r.delay = d
	return r
}

// Retrieve implements difyflow.Retriever.
func (r *MockRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()

	if err := sleep(ctx, r.delay); err != nil {
		return "", err
	}
	if r.err != nil {
		return "", r.err
	}
	return r.passage, nil
}

// Queries returns the queries received so far.
func (r *MockRetriever) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.queries)
}

// ScriptCall records one MockScriptRunner invocation.
type ScriptCall struct {
	Script string
	Inputs map[string]string
}

// MockScriptRunner is a difyflow.ScriptRunner backed by a function.
type MockScriptRunner struct {
	mu    sync.Mutex
	fn    func(inputs map[string]string) (string, error)
	calls []ScriptCall
}

// NewMockScriptRunner creates a runner that evaluates fn.
func NewMockScriptRunner(fn func(inputs map[string]string) (string, error)) *MockScriptRunner {
	return &MockScriptRunner{fn: fn}
}

// Run implements difyflow.ScriptRunner.
func (s *MockScriptRunner) Run(ctx context.Context, script string, inputs map[string]string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, ScriptCall{Script: script, Inputs: maps.Clone(inputs)})
	s.mu.Unlock()
	return s.fn(inputs)
}

// Calls returns every invocation so far.
func (s *MockScriptRunner) Calls() []ScriptCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// MockLogger records log entries.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry is one recorded log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// NewMockLogger creates an empty logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Debug implements difyflow.Logger.
func (l *MockLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	l.log("debug", msg, keysAndValues...)
}

// Info implements difyflow.Logger.
func (l *MockLogger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.log("info", msg, keysAndValues...)
}

// Warn implements difyflow.Logger.
func (l *MockLogger) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	l.log("warn", msg, keysAndValues...)
}

// Error implements difyflow.Logger.
func (l *MockLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.log("error", msg, keysAndValues...)
}

func (l *MockLogger) log(level, msg string, keysAndValues ...any) {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// Entries returns all recorded entries.
func (l *MockLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// HasEntry reports whether a message was logged at level.
func (l *MockLogger) HasEntry(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// MockObserver records engine events.
type MockObserver struct {
	mu       sync.Mutex
	started  []difyflow.NodeEvent
	finished []difyflow.NodeEvent
	runs     []difyflow.RunEvent
}

// NodeStarted implements difyflow.Observer.
func (o *MockObserver) NodeStarted(ctx context.Context, ev difyflow.NodeEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, ev)
}

// NodeFinished implements difyflow.Observer.
func (o *MockObserver) NodeFinished(ctx context.Context, ev difyflow.NodeEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, ev)
}

// RunFinished implements difyflow.Observer.
func (o *MockObserver) RunFinished(ctx context.Context, ev difyflow.RunEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, ev)
}

// Started returns the NodeStarted events.
func (o *MockObserver) Started() []difyflow.NodeEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.started)
}

// Finished returns the NodeFinished events.
func (o *MockObserver) Finished() []difyflow.NodeEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.finished)
}

// Runs returns the RunFinished events.
func (o *MockObserver) Runs() []difyflow.RunEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.runs)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
