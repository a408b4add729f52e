package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

func newVersionCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Example: `  difyflow version
  difyflow version --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   version,
				Commit:    commit,
				BuildDate: buildDate,
				GoVersion: runtime.Version(),
			}
			return render(cmd.OutOrStdout(), g.output, info, func(w io.Writer) error {
				fmt.Fprintf(w, "difyflow version %s\n", info.Version)
				if info.Version == "dev" {
					return nil
				}
				fmt.Fprintf(w, "  commit:     %s\n", info.Commit)
				fmt.Fprintf(w, "  built:      %s\n", info.BuildDate)
				_, err := fmt.Fprintf(w, "  go version: %s\n", info.GoVersion)
				return err
			})
		},
	}
}
