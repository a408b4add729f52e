package difyflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSteps bounds the number of node visits in one run.
const DefaultMaxSteps = 100

// CompletedWithoutAnswer is the answer of a run that ran out of edges before
// reaching an answer node.
const CompletedWithoutAnswer = "workflow completed"

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	maxSteps int
	timeout  time.Duration
	logger   Logger
	observer Observer
	scripts  ScriptRunner
	lenient  bool
}

// WithMaxSteps caps the number of node visits per run.
// Values below 1 keep the current setting.
func WithMaxSteps(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithTimeout bounds the wall-clock duration of each run.
func WithTimeout(d time.Duration) Option {
	return func(o *engineOptions) {
		o.timeout = d
	}
}

// WithLogger sets the logger used for run and node events.
func WithLogger(logger Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithObserver registers hooks invoked around every node visit and run.
func WithObserver(obs Observer) Option {
	return func(o *engineOptions) {
		o.observer = obs
	}
}

// WithScriptRunner enables code nodes.
func WithScriptRunner(r ScriptRunner) Option {
	return func(o *engineOptions) {
		o.scripts = r
	}
}

// WithLenientUnsupported makes unsupported node types end the run with a
// descriptive answer instead of a NodeError.
func WithLenientUnsupported() Option {
	return func(o *engineOptions) {
		o.lenient = true
	}
}

// NodeEvent describes one node visit.
type NodeEvent struct {
	RunID    string
	Workflow string
	NodeID   string
	NodeType NodeType
	Step     int
	// Gateway names the collaborator actually called during the visit:
	// "language_model", "retriever", "script", or "" when none was
	// configured or the node needs none.
	Gateway  string
	Duration time.Duration
	Err      error
}

// RunEvent describes a finished run.
type RunEvent struct {
	RunID     string
	Workflow  string
	Steps     int
	Completed bool
	Duration  time.Duration
	Err       error
}

// Observer receives run lifecycle events. Methods are called synchronously
// from the run's goroutine and must be safe for concurrent runs.
type Observer interface {
	NodeStarted(ctx context.Context, ev NodeEvent)
	NodeFinished(ctx context.Context, ev NodeEvent)
	RunFinished(ctx context.Context, ev RunEvent)
}

// Result is the outcome of a successful run.
type Result struct {
	RunID  string
	Answer string
	// Completed is true when an answer node produced Answer.
	Completed bool
	// Path lists visited node ids in order.
	Path      []string
	Steps     int
	Variables map[string]string
	Duration  time.Duration
}

// Engine executes workflow graphs. It holds no per-run state and may be
// used by many goroutines at once.
type Engine struct {
	lm        LanguageModel
	retriever Retriever
	opts      engineOptions
}

// NewEngine creates an engine calling lm and retriever.
// Options are applied on top of the process-wide defaults.
func NewEngine(lm LanguageModel, retriever Retriever, opts ...Option) *Engine {
	e := &Engine{
		lm:        lm,
		retriever: retriever,
		opts:      currentDefaults(),
	}
	for _, opt := range opts {
		opt(&e.opts)
	}
	if e.opts.logger == nil {
		e.opts.logger = NopLogger()
	}
	return e
}

// Execute runs g against query and returns the final answer.
func (e *Engine) Execute(ctx context.Context, g *Graph, query string) (string, error) {
	res, err := e.Run(ctx, g, query)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Run executes g against query.
//
// The run starts at the unique start node and follows edges until an answer
// node is reached or a node has no outgoing edge. It fails with a
// *NodeError for misconfigured nodes, a *GatewayError when a collaborator
// fails and an *ExecutionError when the step limit is hit or ctx is done.
// No partial result is returned on failure.
func (e *Engine) Run(ctx context.Context, g *Graph, query string) (*Result, error) {
	if g == nil {
		return nil, &GraphError{Kind: ErrNoStartNode, Message: "nil graph"}
	}
	if e.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.timeout)
		defer cancel()
	}

	r := &run{
		engine: e,
		graph:  g,
		id:     uuid.NewString(),
		vars:   NewVariables(query),
	}
	started := time.Now()

	e.opts.logger.Info(ctx, "run started", "run_id", r.id, "workflow", g.Name())
	res, err := r.loop(ctx)
	elapsed := time.Since(started)

	if e.opts.observer != nil {
		e.opts.observer.RunFinished(ctx, RunEvent{
			RunID:     r.id,
			Workflow:  g.Name(),
			Steps:     r.steps,
			Completed: err == nil && res.Completed,
			Duration:  elapsed,
			Err:       err,
		})
	}
	if err != nil {
		e.opts.logger.Error(ctx, "run failed", "run_id", r.id, "steps", r.steps, "error", err)
		return nil, err
	}

	res.Duration = elapsed
	e.opts.logger.Info(ctx, "run finished",
		"run_id", r.id,
		"steps", res.Steps,
		"completed", res.Completed,
		"duration", elapsed)
	return res, nil
}

// run is the state of one execution.
type run struct {
	engine *Engine
	graph  *Graph
	id     string
	vars   *Variables
	steps  int
	path   []string
}

func (r *run) loop(ctx context.Context) (*Result, error) {
	if len(r.graph.start) != 1 {
		_, err := r.graph.FindStart()
		return nil, err
	}

	maxSteps := r.engine.opts.maxSteps
	current := r.graph.start[0]
	for {
		if err := ctx.Err(); err != nil {
			return nil, r.cancelled(current, err)
		}
		if r.steps >= maxSteps {
			return nil, &ExecutionError{Kind: ErrStepLimitExceeded, NodeID: current, Steps: r.steps}
		}

		node, err := r.graph.node(current)
		if err != nil {
			return nil, err
		}
		r.steps++
		r.path = append(r.path, node.ID)

		out, err := r.observe(ctx, node)
		if err != nil {
			return nil, err
		}
		if out.done {
			return r.result(out.answer, out.completed), nil
		}

		edge, ok := Route(r.graph, node.ID, out.hint)
		if !ok {
			r.engine.opts.logger.Debug(ctx, "no next node", "run_id", r.id, "node", node.ID)
			return r.result(CompletedWithoutAnswer, false), nil
		}
		if out.hint != "" && !routeMatched(edge, out.hint) {
			r.engine.opts.logger.Warn(ctx, "no edge for hint, using default edge",
				"run_id", r.id,
				"node", node.ID,
				"hint", out.hint,
				"target", edge.Target)
		}
		current = edge.Target
	}
}

// observe wraps a node visit with logging and observer hooks.
func (r *run) observe(ctx context.Context, node Node) (outcome, error) {
	ev := NodeEvent{
		RunID:    r.id,
		Workflow: r.graph.Name(),
		NodeID:   node.ID,
		NodeType: node.Type(),
		Step:     r.steps,
	}
	obs := r.engine.opts.observer
	if obs != nil {
		obs.NodeStarted(ctx, ev)
	}
	r.engine.opts.logger.Debug(ctx, "visiting node",
		"run_id", r.id,
		"node", node.ID,
		"type", node.Type(),
		"step", r.steps)

	started := time.Now()
	out, err := r.visit(ctx, node)

	if obs != nil {
		ev.Gateway = out.gateway
		ev.Duration = time.Since(started)
		ev.Err = err
		obs.NodeFinished(ctx, ev)
	}
	return out, err
}

func (r *run) result(answer string, completed bool) *Result {
	return &Result{
		RunID:     r.id,
		Answer:    answer,
		Completed: completed,
		Path:      r.path,
		Steps:     r.steps,
		Variables: r.vars.Snapshot(),
	}
}

func (r *run) cancelled(nodeID string, cause error) error {
	return &ExecutionError{Kind: ErrCancelled, NodeID: nodeID, Steps: r.steps, Err: cause}
}

// await runs fn on its own goroutine and returns when it finishes or ctx is
// done, whichever comes first.
func await(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		text, err := fn(ctx)
		done <- reply{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case rep := <-done:
		return rep.text, rep.err
	}
}
