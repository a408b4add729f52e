package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/difyflow/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose  bool
	output   string
	model    string
	maxSteps int
	timeout  time.Duration
	lenient  bool
	sets     []string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "difyflow",
		Short: "Run Dify workflow exports",
		Long: `difyflow executes Dify DSL workflow exports: question classifiers,
knowledge retrieval, LLM, code and answer nodes, routed along the exported
edges until an answer is produced.

Configuration comes from DIFYFLOW_* environment variables (for example
DIFYFLOW_LLM_MODEL or DIFYFLOW_ENGINE_MAX_STEPS), then from flags.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch g.output {
			case textFormat, jsonFormat, yamlFormat:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", g.output)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging and node timings")
	pf.StringVarP(&g.output, "output", "o", textFormat, "Output format (text, json, yaml)")
	pf.StringVar(&g.model, "model", "", "Language model name")
	pf.IntVar(&g.maxSteps, "max-steps", 0, "Maximum node visits per run")
	pf.DurationVar(&g.timeout, "timeout", 0, "Per-run timeout (0 = none)")
	pf.BoolVar(&g.lenient, "lenient", false, "Answer unsupported node types instead of failing")
	pf.StringArrayVar(&g.sets, "set", nil, "Override a configuration key (key=value, repeatable)")

	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newRunCmd(g),
		newBatchCmd(g),
		newValidateCmd(g),
		newInfoCmd(g),
		newNodesCmd(g),
		newVersionCmd(g),
	)
	return root
}

// loadConfig merges changed flags over the environment and defaults.
func (g *globalFlags) loadConfig(cmd *cobra.Command, extra map[string]any) (*config.Config, error) {
	overrides := make(map[string]any)
	for _, kv := range g.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q (want key=value)", kv)
		}
		overrides[key] = value
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		overrides["llm.model"] = g.model
	}
	if flags.Changed("max-steps") {
		overrides["engine.max_steps"] = g.maxSteps
	}
	if flags.Changed("timeout") {
		overrides["engine.timeout"] = g.timeout
	}
	if flags.Changed("lenient") {
		overrides["engine.lenient_unsupported"] = g.lenient
	}
	if g.verbose {
		overrides["log.level"] = "debug"
	}
	for k, v := range extra {
		overrides[k] = v
	}

	return config.Load(overrides)
}

// session loads the configuration and builds the engine. echo selects the
// offline language model.
func (g *globalFlags) session(cmd *cobra.Command, echo bool) (*session, error) {
	extra := map[string]any{}
	if echo {
		extra["llm.provider"] = config.ProviderEcho
	}
	cfg, err := g.loadConfig(cmd, extra)
	if err != nil {
		return nil, err
	}
	return newSession(cfg, cmd.ErrOrStderr())
}
