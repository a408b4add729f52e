package middleware

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/difyflow"
)

// Run and node outcome label values.
const (
	OutcomeCompleted  = "completed"
	OutcomeIncomplete = "incomplete"
	OutcomeFailed     = "failed"
	OutcomeOK         = "ok"
	OutcomeError      = "error"
)

// TypeUnsupported labels node types the engine has no handler for, keeping
// the type label bounded whatever a workflow file declares.
const TypeUnsupported = "unsupported"

// Metrics records run and node statistics in Prometheus collectors.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	runSteps     prometheus.Histogram
	nodeVisits   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	gatewayCalls *prometheus.CounterVec
}

var _ difyflow.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "difyflow",
			Name:      "runs_total",
			Help:      "Workflow runs by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "difyflow",
			Name:      "run_duration_seconds",
			Help:      "Wall time of workflow runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		runSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "difyflow",
			Name:      "run_steps",
			Help:      "Node visits per workflow run.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		nodeVisits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "difyflow",
			Name:      "node_visits_total",
			Help:      "Node visits by node type and outcome.",
		}, []string{"type", "outcome"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "difyflow",
			Name:      "node_duration_seconds",
			Help:      "Wall time of node visits by node type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		gatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "difyflow",
			Name:      "gateway_calls_total",
			Help:      "Gateway calls by gateway and outcome.",
		}, []string{"gateway", "outcome"}),
	}
}

// NodeStarted is a no-op; visits are counted when they finish.
func (m *Metrics) NodeStarted(context.Context, difyflow.NodeEvent) {}

// NodeFinished counts the visit, its duration and any gateway call.
func (m *Metrics) NodeFinished(_ context.Context, ev difyflow.NodeEvent) {
	outcome := OutcomeOK
	if ev.Err != nil {
		outcome = OutcomeError
	}
	nodeType := typeLabel(ev.NodeType)
	m.nodeVisits.WithLabelValues(nodeType, outcome).Inc()
	m.nodeDuration.WithLabelValues(nodeType).Observe(ev.Duration.Seconds())
	if ev.Gateway != "" {
		m.gatewayCalls.WithLabelValues(ev.Gateway, outcome).Inc()
	}
}

// RunFinished counts the run by outcome.
func (m *Metrics) RunFinished(_ context.Context, ev difyflow.RunEvent) {
	outcome := OutcomeCompleted
	switch {
	case ev.Err != nil:
		outcome = OutcomeFailed
	case !ev.Completed:
		outcome = OutcomeIncomplete
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(ev.Duration.Seconds())
	m.runSteps.Observe(float64(ev.Steps))
}

func typeLabel(t difyflow.NodeType) string {
	switch t {
	case difyflow.TypeStart, difyflow.TypeQuestionClassifier, difyflow.TypeKnowledgeRetrieval,
		difyflow.TypeLLM, difyflow.TypeAnswer, difyflow.TypeCode:
		return string(t)
	default:
		return TypeUnsupported
	}
}
