// Package script runs the Lua bodies of code nodes in a sandboxed go-lua
// state.
//
// A script either defines main(inputs) and returns its value, or assigns the
// global result. Strings, numbers and booleans are returned as text; tables
// are returned as JSON.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/agentstation/difyflow"
)

// hookInterval is the number of VM instructions between context checks.
const hookInterval = 1000

// Runner executes Lua scripts. It implements difyflow.ScriptRunner and is
// safe for concurrent use; every call gets a fresh state.
type Runner struct {
	logger difyflow.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger routes the script's print calls to logger at debug level.
func WithLogger(logger difyflow.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{logger: difyflow.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ difyflow.ScriptRunner = (*Runner)(nil)

// Run executes script with inputs bound to the inputs table and returns the
// text of its result. It stops with ctx.Err() once ctx is done. A panic
// while running or converting the result is returned as an error.
func (r *Runner) Run(ctx context.Context, script string, inputs map[string]string) (out string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("script panic: %v", p)
		}
	}()

	l := lua.NewState()
	setupSandbox(l)
	l.Register("print", r.print(ctx))
	lua.SetDebugHook(l, func(l *lua.State, _ lua.Debug) {
		if err := ctx.Err(); err != nil {
			lua.Errorf(l, "%s", err.Error())
		}
	}, lua.MaskCount, hookInterval)

	pushInputs(l, inputs)
	l.SetGlobal("inputs")

	value, err := execute(l, script, inputs)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", err
	}
	return stringify(value)
}

func execute(l *lua.State, script string, inputs map[string]string) (any, error) {
	if err := lua.DoString(l, script); err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	l.Global("main")
	if l.TypeOf(-1) == lua.TypeFunction {
		pushInputs(l, inputs)
		if err := l.ProtectedCall(1, 1, 0); err != nil {
			return nil, fmt.Errorf("main: %w", err)
		}
		defer l.Pop(1)
		return pullValue(l, -1)
	}
	l.Pop(1)

	l.Global("result")
	defer l.Pop(1)
	return pullValue(l, -1)
}

func (r *Runner) print(ctx context.Context) lua.Function {
	return func(l *lua.State) int {
		n := l.Top()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			s, _ := lua.ToStringMeta(l, i)
			parts = append(parts, s)
			l.Pop(1)
		}
		r.logger.Debug(ctx, "script print", "output", strings.Join(parts, "\t"))
		return 0
	}
}

func stringify(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("encode result: %w", err)
		}
		return string(data), nil
	}
}

// Check compiles script without running it.
func Check(script string) error {
	l := lua.NewState()
	if err := lua.LoadString(l, script); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	return nil
}
