package middleware_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/agentstation/difyflow"
	"github.com/agentstation/difyflow/internal/testutil"
	"github.com/agentstation/difyflow/middleware"
)

func billingEngine(t *testing.T, obs difyflow.Observer) (*difyflow.Engine, *difyflow.Graph) {
	t.Helper()
	engine := difyflow.NewEngine(testutil.BillingModel(), testutil.NewMockRetriever("refund policy"),
		difyflow.WithObserver(obs))
	return engine, testutil.BillingGraph(t)
}

func TestChain(t *testing.T) {
	var order []string
	record := func(name string) difyflow.Observer {
		return middleware.Funcs{
			OnRunFinished: func(context.Context, difyflow.RunEvent) {
				order = append(order, name)
			},
		}
	}

	obs := middleware.Chain(record("first"), nil, record("second"))
	obs.NodeStarted(context.Background(), difyflow.NodeEvent{})
	obs.RunFinished(context.Background(), difyflow.RunEvent{})

	if got := strings.Join(order, ","); got != "first,second" {
		t.Errorf("order = %s, want first,second", got)
	}
}

func TestLogging(t *testing.T) {
	logger := testutil.NewMockLogger()
	engine, g := billingEngine(t, middleware.Logging(logger))

	if _, err := engine.Execute(context.Background(), g, testutil.BillingQuery); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []struct{ level, msg string }{
		{"debug", "node starting"},
		{"info", "node completed"},
		{"info", "workflow completed"},
	} {
		if !logger.HasEntry(want.level, want.msg) {
			t.Errorf("missing %s entry %q", want.level, want.msg)
		}
	}
}

func TestLoggingFailure(t *testing.T) {
	logger := testutil.NewMockLogger()
	lm := testutil.NewMockLanguageModel().WithError(errors.New("down"))
	engine := difyflow.NewEngine(lm, testutil.NewMockRetriever(""), difyflow.WithObserver(middleware.Logging(logger)))

	if _, err := engine.Execute(context.Background(), testutil.BillingGraph(t), "q"); err == nil {
		t.Fatal("Execute() error = nil")
	}
	if !logger.HasEntry("error", "node failed") || !logger.HasEntry("error", "workflow failed") {
		t.Errorf("entries = %+v", logger.Entries())
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine, g := billingEngine(t, middleware.NewMetrics(reg))

	for i := 0; i < 3; i++ {
		if _, err := engine.Execute(context.Background(), g, testutil.BillingQuery); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	expected := `
# HELP difyflow_runs_total Workflow runs by outcome.
# TYPE difyflow_runs_total counter
difyflow_runs_total{outcome="completed"} 3
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "difyflow_runs_total"); err != nil {
		t.Error(err)
	}

	expected = `
# HELP difyflow_gateway_calls_total Gateway calls by gateway and outcome.
# TYPE difyflow_gateway_calls_total counter
difyflow_gateway_calls_total{gateway="language_model",outcome="ok"} 6
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "difyflow_gateway_calls_total"); err != nil {
		t.Error(err)
	}

	n, err := promtest.GatherAndCount(reg, "difyflow_node_visits_total")
	if err != nil || n != 4 {
		t.Errorf("node_visits_total series = %d, %v, want 4", n, err)
	}
}

func TestMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)
	ctx := context.Background()

	m.RunFinished(ctx, difyflow.RunEvent{Completed: true, Steps: 3})
	m.RunFinished(ctx, difyflow.RunEvent{Completed: false, Steps: 2})
	m.RunFinished(ctx, difyflow.RunEvent{Err: errors.New("boom")})
	m.NodeFinished(ctx, difyflow.NodeEvent{NodeType: difyflow.TypeLLM, Gateway: "language_model", Err: errors.New("boom")})

	expected := `
# HELP difyflow_runs_total Workflow runs by outcome.
# TYPE difyflow_runs_total counter
difyflow_runs_total{outcome="completed"} 1
difyflow_runs_total{outcome="failed"} 1
difyflow_runs_total{outcome="incomplete"} 1
# HELP difyflow_node_visits_total Node visits by node type and outcome.
# TYPE difyflow_node_visits_total counter
difyflow_node_visits_total{outcome="error",type="llm"} 1
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "difyflow_runs_total", "difyflow_node_visits_total"); err != nil {
		t.Error(err)
	}
}

func TestMetricsUnsupportedTypeLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine := difyflow.NewEngine(nil, nil,
		difyflow.WithLenientUnsupported(),
		difyflow.WithObserver(middleware.NewMetrics(reg)))

	for _, raw := range []string{"http-request", "tool", "x-custom-9f2c"} {
		g := testutil.MustGraph(t,
			[]difyflow.Node{
				{ID: "start", Data: difyflow.StartData{}},
				{ID: "other", Data: difyflow.UnsupportedData{RawType: raw}},
			},
			testutil.Chain("start", "other"),
		)
		if _, err := engine.Run(context.Background(), g, "q"); err != nil {
			t.Fatalf("Run(%s) error = %v", raw, err)
		}
	}

	expected := `
# HELP difyflow_node_visits_total Node visits by node type and outcome.
# TYPE difyflow_node_visits_total counter
difyflow_node_visits_total{outcome="ok",type="start"} 3
difyflow_node_visits_total{outcome="ok",type="unsupported"} 3
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "difyflow_node_visits_total"); err != nil {
		t.Error(err)
	}
}

func TestTiming(t *testing.T) {
	timing := middleware.NewTiming()
	ctx := context.Background()

	timing.NodeFinished(ctx, difyflow.NodeEvent{NodeID: "b", Duration: 10 * time.Millisecond})
	timing.NodeFinished(ctx, difyflow.NodeEvent{NodeID: "b", Duration: 30 * time.Millisecond})
	timing.NodeFinished(ctx, difyflow.NodeEvent{NodeID: "a", Duration: time.Millisecond})

	s, ok := timing.Stats("b")
	if !ok {
		t.Fatal("Stats(b) not found")
	}
	if s.Count != 2 || s.Total != 40*time.Millisecond || s.Last != 30*time.Millisecond || s.Avg() != 20*time.Millisecond {
		t.Errorf("Stats(b) = %+v", s)
	}
	if got := strings.Join(timing.Nodes(), ","); got != "a,b" {
		t.Errorf("Nodes() = %s, want a,b", got)
	}
	if (middleware.TimingStats{}).Avg() != 0 {
		t.Error("zero Avg() != 0")
	}
}
