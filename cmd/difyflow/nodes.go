package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	goyaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/agentstation/difyflow/builtin"
)

func newNodesCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the node types the engine executes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes := builtin.DefaultRegistry().All()
			return render(cmd.OutOrStdout(), g.output, nodes, func(w io.Writer) error {
				return writeNodeTable(w, nodes)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "info <type>",
		Short: "Show the configuration schema and examples of a node type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, ok := builtin.DefaultRegistry().Get(args[0])
			if !ok {
				return fmt.Errorf("node type '%s' not found", args[0])
			}
			return render(cmd.OutOrStdout(), g.output, meta, func(w io.Writer) error {
				return writeNodeInfo(w, meta)
			})
		},
	})
	return cmd
}

func writeNodeTable(w io.Writer, nodes []builtin.NodeMetadata) error {
	var category string
	for _, n := range nodes {
		if n.Category != category {
			category = n.Category
			fmt.Fprintf(w, "\n%s:\n", strings.ToUpper(category[:1])+category[1:])
			fmt.Fprintln(w, strings.Repeat("-", len(category)+1))
		}
		fmt.Fprintf(w, "  %-20s %s\n", n.Type, n.Description)
	}
	fmt.Fprintf(w, "\nTotal: %d node types\n", len(nodes))
	_, err := fmt.Fprintln(w, "\nUse 'difyflow nodes info <type>' for the configuration of a node type.")
	return err
}

func writeNodeInfo(w io.Writer, meta builtin.NodeMetadata) error {
	fmt.Fprintf(w, "Node Type:   %s\n", meta.Type)
	fmt.Fprintf(w, "Category:    %s\n", meta.Category)
	fmt.Fprintf(w, "Description: %s\n", meta.Description)
	fmt.Fprintf(w, "Routing:     %s\n", meta.Routing)
	if meta.Gateway != "" {
		fmt.Fprintf(w, "Gateway:     %s\n", meta.Gateway)
	}
	if len(meta.Writes) > 0 {
		fmt.Fprintf(w, "Writes:      %s\n", strings.Join(meta.Writes, ", "))
	}
	if meta.Since != "" {
		fmt.Fprintf(w, "Since:       %s\n", meta.Since)
	}

	if len(meta.ConfigSchema) > 0 {
		schema, err := json.MarshalIndent(meta.ConfigSchema, "  ", "  ")
		if err != nil {
			return fmt.Errorf("marshal schema: %w", err)
		}
		fmt.Fprintf(w, "\nConfiguration:\n  %s\n", schema)
	}

	if len(meta.Examples) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nExamples:")
	for i, ex := range meta.Examples {
		fmt.Fprintf(w, "  %d. %s\n", i+1, ex.Name)
		if ex.Description != "" {
			fmt.Fprintf(w, "     %s\n", ex.Description)
		}
		data, err := goyaml.Marshal(ex.Data)
		if err != nil {
			return fmt.Errorf("marshal example: %w", err)
		}
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			fmt.Fprintf(w, "       %s\n", line)
		}
	}
	return nil
}
