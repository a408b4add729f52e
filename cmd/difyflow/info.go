package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/difyflow/yaml"
)

type workflowInfo struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Mode        string           `json:"mode,omitempty" yaml:"mode,omitempty"`
	Version     string           `json:"version,omitempty" yaml:"version,omitempty"`
	Nodes       int              `json:"nodes" yaml:"nodes"`
	Edges       int              `json:"edges" yaml:"edges"`
	Models      []yaml.ModelInfo `json:"models" yaml:"models"`
}

func newInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <workflow.yml>",
		Short: "Show workflow metadata and the models it uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := yaml.NewParser().ParseFile(args[0])
			if err != nil {
				return fmt.Errorf("parse workflow: %w", err)
			}
			models, err := yaml.ExtractModelInfo(doc)
			if err != nil {
				return err
			}

			info := workflowInfo{
				Name:        doc.App.Name,
				Description: doc.App.Description,
				Mode:        doc.App.Mode,
				Version:     doc.Version,
				Nodes:       len(doc.Workflow.Graph.Nodes),
				Edges:       len(doc.Workflow.Graph.Edges),
				Models:      models,
			}

			return render(cmd.OutOrStdout(), g.output, info, func(w io.Writer) error {
				fmt.Fprintf(w, "Name:        %s\n", info.Name)
				if info.Description != "" {
					fmt.Fprintf(w, "Description: %s\n", info.Description)
				}
				fmt.Fprintf(w, "Mode:        %s\n", info.Mode)
				fmt.Fprintf(w, "DSL version: %s\n", info.Version)
				fmt.Fprintf(w, "Graph:       %d nodes, %d edges\n", info.Nodes, info.Edges)
				if len(info.Models) == 0 {
					return nil
				}
				fmt.Fprintln(w, "\nModels:")
				for _, m := range info.Models {
					_, err := fmt.Fprintf(w, "  %-16s %s/%s (%d prompt templates)\n",
						m.NodeID, m.Provider, m.ModelName, len(m.PromptTemplates))
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
