package testutil

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/difyflow"
)

// Assert provides fatal test assertions.
type Assert struct {
	t testing.TB
}

// NewAssert creates a new assert helper.
func NewAssert(t testing.TB) *Assert {
	return &Assert{t: t}
}

// Equal asserts that want and got are deeply equal.
func (a *Assert) Equal(want, got any, msgAndArgs ...any) {
	a.t.Helper()
	if !reflect.DeepEqual(want, got) {
		a.fail(fmt.Sprintf("got %v, want %v", got, want), msgAndArgs...)
	}
}

// NotEqual asserts that two values differ.
func (a *Assert) NotEqual(unwanted, got any, msgAndArgs ...any) {
	a.t.Helper()
	if reflect.DeepEqual(unwanted, got) {
		a.fail(fmt.Sprintf("got %v, want a different value", got), msgAndArgs...)
	}
}

// True asserts that value is true.
func (a *Assert) True(value bool, msgAndArgs ...any) {
	a.t.Helper()
	if !value {
		a.fail("got false, want true", msgAndArgs...)
	}
}

// False asserts that value is false.
func (a *Assert) False(value bool, msgAndArgs ...any) {
	a.t.Helper()
	if value {
		a.fail("got true, want false", msgAndArgs...)
	}
}

// NoError asserts that err is nil.
func (a *Assert) NoError(err error, msgAndArgs ...any) {
	a.t.Helper()
	if err != nil {
		a.fail(fmt.Sprintf("unexpected error: %v", err), msgAndArgs...)
	}
}

// ErrorIs asserts that err matches target.
func (a *Assert) ErrorIs(err, target error, msgAndArgs ...any) {
	a.t.Helper()
	if !errors.Is(err, target) {
		a.fail(fmt.Sprintf("error = %v, want %v", err, target), msgAndArgs...)
	}
}

// Contains asserts that s contains substr.
func (a *Assert) Contains(s, substr string, msgAndArgs ...any) {
	a.t.Helper()
	if !strings.Contains(s, substr) {
		a.fail(fmt.Sprintf("%q does not contain %q", s, substr), msgAndArgs...)
	}
}

// Len asserts the length of a slice, map, string or channel.
func (a *Assert) Len(collection any, length int, msgAndArgs ...any) {
	a.t.Helper()
	if got := reflect.ValueOf(collection).Len(); got != length {
		a.fail(fmt.Sprintf("len = %d, want %d", got, length), msgAndArgs...)
	}
}

// Eventually asserts that condition becomes true within timeout.
func (a *Assert) Eventually(condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	a.t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	a.fail("condition not met within "+timeout.String(), msgAndArgs...)
}

func (a *Assert) fail(message string, msgAndArgs ...any) {
	a.t.Helper()
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok {
			message = fmt.Sprintf(format, msgAndArgs[1:]...) + ": " + message
		}
	}
	a.t.Fatal(message)
}

// RunAssert runs workflows and checks their outcome.
type RunAssert struct {
	*Assert
	engine *difyflow.Engine
}

// NewRunAssert creates run assertions for engine.
func NewRunAssert(t testing.TB, engine *difyflow.Engine) *RunAssert {
	return &RunAssert{Assert: NewAssert(t), engine: engine}
}

// Answers asserts that running g with query succeeds with want.
func (ra *RunAssert) Answers(g *difyflow.Graph, query, want string) *difyflow.Result {
	ra.t.Helper()
	res, err := ra.engine.Run(context.Background(), g, query)
	ra.NoError(err, "run %q", query)
	ra.Equal(want, res.Answer, "answer for %q", query)
	return res
}

// Fails asserts that running g with query fails with target.
func (ra *RunAssert) Fails(g *difyflow.Graph, query string, target error) error {
	ra.t.Helper()
	res, err := ra.engine.Run(context.Background(), g, query)
	if err == nil {
		ra.fail(fmt.Sprintf("run succeeded with %q, want %v", res.Answer, target))
	}
	ra.ErrorIs(err, target)
	return err
}
