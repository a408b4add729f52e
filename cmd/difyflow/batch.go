package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/difyflow/batch"
	"github.com/agentstation/difyflow/internal/telemetry"
)

type batchLine struct {
	Query     string `json:"query" yaml:"query"`
	Answer    string `json:"answer,omitempty" yaml:"answer,omitempty"`
	Completed bool   `json:"completed" yaml:"completed"`
	Steps     int    `json:"steps,omitempty" yaml:"steps,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	var (
		queriesFile string
		concurrency int
		failFast    bool
		echo        bool
	)

	cmd := &cobra.Command{
		Use:   "batch <workflow.yml>",
		Short: "Execute a workflow for every query in a file",
		Long: `Execute a workflow once per line of the queries file. Blank lines and
lines starting with # are skipped. Use - to read queries from stdin.`,
		Example: `  difyflow batch support.yml --queries-file questions.txt --concurrency 8`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(cmd.InOrStdin(), queriesFile)
			if err != nil {
				return err
			}
			s, err := g.session(cmd, echo)
			if err != nil {
				return err
			}
			graph, err := s.loader.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("load workflow: %w", err)
			}

			r := batch.Runner{Engine: s.engine, Concurrency: concurrency, FailFast: failFast}
			outcomes, runErr := r.Run(cmd.Context(), graph, queries)
			telemetry.WithWorkflow(s.logger, graph.Name()).Info("batch finished",
				"queries", len(outcomes),
				"failed", batch.Failed(outcomes),
			)

			lines := make([]batchLine, len(outcomes))
			for i, o := range outcomes {
				lines[i] = batchLine{Query: o.Query, Answer: o.Answer}
				if o.Result != nil {
					lines[i].Completed = o.Result.Completed
					lines[i].Steps = o.Result.Steps
				}
				if o.Err != nil {
					lines[i].Error = o.Err.Error()
				}
			}

			err = render(cmd.OutOrStdout(), g.output, lines, func(w io.Writer) error {
				for i, l := range lines {
					result := l.Answer
					if l.Error != "" {
						result = "error: " + l.Error
					}
					if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, l.Query, result); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			if runErr != nil {
				return fmt.Errorf("batch stopped: %w", runErr)
			}
			if n := batch.Failed(outcomes); n > 0 {
				return fmt.Errorf("%d of %d queries failed", n, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queriesFile, "queries-file", "f", "", "File with one query per line (- for stdin)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Queries run at once")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failed query")
	cmd.Flags().BoolVar(&echo, "echo", false, "Use the offline echo language model")
	_ = cmd.MarkFlagRequired("queries-file")
	return cmd
}

func readQueries(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path) // #nosec G304 - user-provided queries file
		if err != nil {
			return nil, fmt.Errorf("open queries: %w", err)
		}
		defer f.Close()
		r = f
	}

	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return queries, nil
}
