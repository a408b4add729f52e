package main

import (
	"fmt"
	"io"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/agentstation/difyflow"
	"github.com/agentstation/difyflow/internal/telemetry"
)

// runView is the structured output of a run.
type runView struct {
	RunID     string            `json:"runId" yaml:"runId"`
	Workflow  string            `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Answer    string            `json:"answer" yaml:"answer"`
	Completed bool              `json:"completed" yaml:"completed"`
	Steps     int               `json:"steps" yaml:"steps"`
	Path      []string          `json:"path" yaml:"path"`
	Duration  string            `json:"duration" yaml:"duration"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

func newRunView(g *difyflow.Graph, res *difyflow.Result) runView {
	return runView{
		RunID:     res.RunID,
		Workflow:  g.Name(),
		Answer:    res.Answer,
		Completed: res.Completed,
		Steps:     res.Steps,
		Path:      res.Path,
		Duration:  res.Duration.String(),
		Variables: res.Variables,
	}
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		query   string
		echo    bool
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow.yml>",
		Short: "Execute a workflow for one query",
		Example: `  # Answer a question with OpenAI (needs OPENAI_API_KEY)
  difyflow run support.yml --query "Why was I charged twice?"

  # Run offline with the echo model and print the full result
  difyflow run support.yml -q "refund please" --echo -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd, echo)
			if err != nil {
				return err
			}
			graph, err := s.loader.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("load workflow: %w", err)
			}

			logger := telemetry.WithWorkflow(s.logger, graph.Name())
			logger.Debug("workflow loaded", "path", args[0], "nodes", graph.Len())

			res, err := s.engine.Run(cmd.Context(), graph, query)
			if err != nil {
				return fmt.Errorf("run workflow: %w", err)
			}
			telemetry.WithRunID(logger, res.RunID).Debug("rendering result", "format", g.output)

			err = render(cmd.OutOrStdout(), g.output, newRunView(graph, res), func(w io.Writer) error {
				_, err := fmt.Fprintln(w, res.Answer)
				return err
			})
			if err != nil {
				return err
			}

			if g.verbose {
				writeTimings(cmd.ErrOrStderr(), s, res.Path)
			}
			if metrics {
				return writeMetrics(cmd.ErrOrStderr(), s)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "User query (sys.query)")
	cmd.Flags().BoolVar(&echo, "echo", false, "Use the offline echo language model")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Print Prometheus metrics to stderr after the run")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

// writeTimings prints the visit durations of the nodes in path.
func writeTimings(w io.Writer, s *session, path []string) {
	seen := make(map[string]bool, len(path))
	fmt.Fprintln(w, "Node timings:")
	for _, id := range path {
		if seen[id] {
			continue
		}
		seen[id] = true
		if st, ok := s.timing.Stats(id); ok {
			fmt.Fprintf(w, "  %-20s visits=%d avg=%v\n", id, st.Count, st.Avg())
		}
	}
}

func writeMetrics(w io.Writer, s *session) error {
	families, err := s.metrics.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
