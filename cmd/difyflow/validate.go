package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/difyflow"
	"github.com/agentstation/difyflow/internal/telemetry"
	"github.com/agentstation/difyflow/script"
)

type validation struct {
	File     string         `json:"file" yaml:"file"`
	Workflow string         `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Valid    bool           `json:"valid" yaml:"valid"`
	Nodes    int            `json:"nodes" yaml:"nodes"`
	Edges    int            `json:"edges" yaml:"edges"`
	Types    map[string]int `json:"types" yaml:"types"`
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow.yml>",
		Short: "Check a workflow without running it",
		Long: `Parse the workflow, check it against the DSL schema and every node
type's configuration schema, build the graph and compile Lua code nodes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			logger := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			graph, err := newLoader(cfg, logger).LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("invalid workflow: %w", err)
			}
			if err := checkScripts(graph); err != nil {
				return fmt.Errorf("invalid workflow: %w", err)
			}

			v := validation{
				File:     args[0],
				Workflow: graph.Name(),
				Valid:    true,
				Nodes:    graph.Len(),
				Edges:    len(graph.Edges()),
				Types:    make(map[string]int),
			}
			for _, n := range graph.Nodes() {
				v.Types[string(n.Type())]++
			}

			return render(cmd.OutOrStdout(), g.output, v, func(w io.Writer) error {
				types := make([]string, 0, len(v.Types))
				for t, n := range v.Types {
					types = append(types, fmt.Sprintf("%s=%d", t, n))
				}
				sort.Strings(types)
				_, err := fmt.Fprintf(w, "valid: %s (%d nodes, %d edges; %s)\n",
					args[0], v.Nodes, v.Edges, strings.Join(types, " "))
				return err
			})
		},
	}
}

// checkScripts compiles the Lua body of every code node.
func checkScripts(g *difyflow.Graph) error {
	var errs []error
	for _, id := range g.NodesOfType(difyflow.TypeCode) {
		node, err := g.FindByID(id)
		if err != nil {
			return err
		}
		data, ok := node.Data.(difyflow.CodeData)
		if !ok {
			continue
		}
		if lang := strings.ToLower(data.Language); lang != "" && lang != "lua" {
			continue
		}
		if err := script.Check(data.Script); err != nil {
			errs = append(errs, fmt.Errorf("code node %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
