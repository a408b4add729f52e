package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentstation/difyflow"
	"github.com/agentstation/difyflow/internal/config"
)

var (
	billingFile = filepath.Join("..", "..", "yaml", "testdata", "billing.yml")
	codeFile    = filepath.Join("..", "..", "yaml", "testdata", "code.yml")
	invalidFile = filepath.Join("..", "..", "yaml", "testdata", "invalid.yml")
)

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const unsupportedWorkflow = `app:
  name: web
workflow:
  graph:
    nodes:
    - {id: start, data: {type: start}}
    - {id: fetch, data: {type: http-request}}
    edges:
    - {source: start, target: fetch}
`

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{
			name: "billing branch",
			args: []string{"run", billingFile, "-q", "I have a billing question", "--echo"},
			want: "echo: I have a billing question\n",
		},
		{
			name: "other branch",
			args: []string{"run", billingFile, "-q", "some other thing", "--echo"},
			want: "Please contact our support team.\n",
		},
		{
			name: "code node",
			args: []string{"run", codeFile, "-q", "hello", "--echo"},
			want: "HELLO\n",
		},
		{
			name:    "unsupported node",
			args:    []string{"run", writeFile(t, "web.yml", unsupportedWorkflow), "-q", "hi", "--echo"},
			wantErr: "unsupported",
		},
		{
			name: "lenient unsupported node",
			args: []string{"run", writeFile(t, "web.yml", unsupportedWorkflow), "-q", "hi", "--echo", "--lenient"},
			want: difyflow.UnsupportedAnswer("http-request") + "\n",
		},
		{
			name:    "missing query",
			args:    []string{"run", billingFile, "--echo"},
			wantErr: "query",
		},
		{
			name:    "invalid workflow",
			args:    []string{"run", invalidFile, "-q", "hi", "--echo"},
			wantErr: "load workflow",
		},
		{
			name:    "bad output format",
			args:    []string{"run", billingFile, "-q", "hi", "--echo", "-o", "xml"},
			wantErr: "unknown output format",
		},
		{
			name:    "bad set",
			args:    []string{"run", billingFile, "-q", "hi", "--echo", "--set", "novalue"},
			wantErr: "invalid --set",
		},
		{
			name:    "step cap",
			args:    []string{"run", billingFile, "-q", "billing", "--echo", "--max-steps", "2"},
			wantErr: "run workflow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := execute(t, "", tt.args...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("execute() error = %v, want mention of %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("execute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunCommandJSON(t *testing.T) {
	out, _, err := execute(t, "", "run", billingFile, "-q", "other", "--echo", "-o", "json")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	var view runView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if !view.Completed || view.Steps != 3 || view.RunID == "" {
		t.Errorf("view = %+v", view)
	}
	wantPath := []string{"1711528914102", "1711528915811", "1711528919501"}
	if strings.Join(view.Path, ",") != strings.Join(wantPath, ",") {
		t.Errorf("Path = %v, want %v", view.Path, wantPath)
	}
	if view.Variables["1711528915811.class"] != "other" {
		t.Errorf("Variables = %v", view.Variables)
	}
}

func TestRunCommandVerbose(t *testing.T) {
	_, stderr, err := execute(t, "", "run", codeFile, "-q", "hi", "--echo", "-v", "--metrics")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{"Node timings:", "upper", "difyflow_runs_total", "node starting"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestBatchCommand(t *testing.T) {
	queries := writeFile(t, "queries.txt", "billing refund\n# skipped\n\nother question\n")

	out, _, err := execute(t, "", "batch", billingFile, "--queries-file", queries, "--echo")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	want := "1\tbilling refund\techo: billing refund\n2\tother question\tPlease contact our support team.\n"
	if out != want {
		t.Errorf("execute() = %q, want %q", out, want)
	}

	out, _, err = execute(t, "hello\nworld\n", "batch", codeFile, "-f", "-", "--echo", "-o", "json")
	if err != nil {
		t.Fatalf("execute(stdin) error = %v", err)
	}
	var lines []batchLine
	if err := json.Unmarshal([]byte(out), &lines); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if len(lines) != 2 || lines[0].Answer != "HELLO" || lines[1].Answer != "WORLD" {
		t.Errorf("lines = %+v", lines)
	}
}

func TestBatchCommandFailures(t *testing.T) {
	web := writeFile(t, "web.yml", unsupportedWorkflow)
	out, _, err := execute(t, "a\nb\n", "batch", web, "-f", "-", "--echo")
	if err == nil || !strings.Contains(err.Error(), "2 of 2 queries failed") {
		t.Errorf("execute() error = %v", err)
	}
	if strings.Count(out, "error:") != 2 {
		t.Errorf("execute() = %q, want two error lines", out)
	}

	_, _, err = execute(t, "# nothing\n\n", "batch", web, "-f", "-", "--echo")
	if err == nil || !strings.Contains(err.Error(), "no queries") {
		t.Errorf("execute(empty) error = %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	out, _, err := execute(t, "", "validate", billingFile)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.HasPrefix(out, "valid: "+billingFile+" (6 nodes, 5 edges;") {
		t.Errorf("execute() = %q", out)
	}

	if _, _, err := execute(t, "", "validate", invalidFile); err == nil {
		t.Error("validate(invalid.yml) error = nil")
	}

	badLua := writeFile(t, "bad.yml", `workflow:
  graph:
    nodes:
    - {id: start, data: {type: start}}
    - {id: broken, data: {type: code, code: "function main("}}
    edges:
    - {source: start, target: broken}
`)
	_, _, err = execute(t, "", "validate", badLua)
	if err == nil || !strings.Contains(err.Error(), "code node broken") {
		t.Errorf("validate(bad lua) error = %v", err)
	}
}

func TestInfoCommand(t *testing.T) {
	out, _, err := execute(t, "", "info", billingFile, "-o", "json")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	var info workflowInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if info.Name != "billing-support" || info.Mode != "advanced-chat" || info.Nodes != 6 || info.Edges != 5 {
		t.Errorf("info = %+v", info)
	}
	if len(info.Models) != 1 || info.Models[0].NodeID != "llmNode" || info.Models[0].ModelName != "gpt-3.5-turbo" {
		t.Errorf("Models = %+v", info.Models)
	}

	out, _, err = execute(t, "", "info", billingFile)
	if err != nil {
		t.Fatalf("execute(text) error = %v", err)
	}
	if !strings.Contains(out, "Name:        billing-support") || !strings.Contains(out, "llmNode") {
		t.Errorf("execute(text) = %q", out)
	}
}

func TestNodesCommand(t *testing.T) {
	out, _, err := execute(t, "", "nodes")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{"question-classifier", "knowledge-retrieval", "Total: 6 node types"} {
		if !strings.Contains(out, want) {
			t.Errorf("nodes output missing %q", want)
		}
	}

	out, _, err = execute(t, "", "nodes", "info", "llm")
	if err != nil {
		t.Fatalf("execute(info) error = %v", err)
	}
	if !strings.Contains(out, "Gateway:     language_model") || !strings.Contains(out, "Grounded answer") {
		t.Errorf("execute(info) = %q", out)
	}

	if _, _, err := execute(t, "", "nodes", "info", "http-request"); err == nil {
		t.Error("nodes info http-request error = nil")
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version", "-o", "json")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if info.Version != version || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestClassify(t *testing.T) {
	classes := []difyflow.Class{{ID: "billing", Name: "Billing"}, {ID: "shipping", Name: "Shipping"}}

	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{query: "Where is my shipping label?", want: "shipping", wantOK: true},
		{query: "BILLING problem", want: "billing", wantOK: true},
		{query: "hello", want: "billing", wantOK: true},
	}
	for _, tt := range tests {
		got, ok := classify(difyflow.ClassifierPrompt(tt.query, classes))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("classify(%q) = %q, %v, want %q, %v", tt.query, got, ok, tt.want, tt.wantOK)
		}
	}

	if _, ok := classify("not a classifier prompt"); ok {
		t.Error("classify(plain) ok = true")
	}
}

func TestEchoModel(t *testing.T) {
	got, err := echoModel{}.Complete(context.Background(), []difyflow.Message{
		{Role: difyflow.RoleSystem, Text: "be nice"},
		{Role: difyflow.RoleUser, Text: "hi"},
	})
	if err != nil || got != "echo: hi" {
		t.Errorf("Complete() = %q, %v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (echoModel{}).Complete(ctx, nil); err == nil {
		t.Error("Complete(cancelled) error = nil")
	}
}

func TestNewLanguageModel(t *testing.T) {
	cfg := config.Default()

	cfg.LLM.APIKey = ""
	if _, err := newLanguageModel(cfg.LLM); err == nil || !strings.Contains(err.Error(), "no API key") {
		t.Errorf("newLanguageModel(no key) error = %v", err)
	}

	cfg.LLM.APIKey = "test-key"
	cfg.LLM.RateLimit = 5
	cfg.LLM.Burst = 1
	if lm, err := newLanguageModel(cfg.LLM); err != nil || lm == nil {
		t.Errorf("newLanguageModel(openai) = %v, %v", lm, err)
	}

	cfg.LLM.Provider = "bogus"
	if _, err := newLanguageModel(cfg.LLM); err == nil {
		t.Error("newLanguageModel(bogus) error = nil")
	}
}
