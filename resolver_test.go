package difyflow_test

import (
	"testing"

	"github.com/agentstation/difyflow"
)

func TestResolveReference(t *testing.T) {
	vars := difyflow.NewVariables("q")
	vars.Set("n1.text", "hello")
	vars.Set("empty.text", "")

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "reference", template: "{{#n1.text#}}", want: "hello"},
		{name: "missing key", template: "{{#missing.key#}}", want: difyflow.FallbackAnswer},
		{name: "empty value", template: "{{#empty.text#}}", want: ""},
		{name: "query", template: "{{#sys.query#}}", want: "q"},
		{name: "literal", template: "plain text", want: "plain text"},
		{name: "surrounding text", template: "Answer: {{#n1.text#}}", want: "Answer: {{#n1.text#}}"},
		{name: "trailing text", template: "{{#n1.text#}}!", want: "{{#n1.text#}}!"},
		{name: "bare markers", template: "{{##}}", want: difyflow.FallbackAnswer},
		{name: "too short", template: "{{#}}", want: "{{#}}"},
		{name: "empty", template: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := difyflow.ResolveReference(tt.template, vars); got != tt.want {
				t.Errorf("ResolveReference(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestSubstituteContext(t *testing.T) {
	tests := []struct {
		name     string
		template string
		snippet  string
		want     string
	}{
		{name: "single marker", template: "Use: {{#context#}}", snippet: "FACTS", want: "Use: FACTS"},
		{name: "repeated marker", template: "{{#context#}}/{{#context#}}", snippet: "F", want: "F/F"},
		{name: "no marker", template: "You are helpful.", snippet: "FACTS", want: "You are helpful."},
		{name: "empty snippet", template: "Use: {{#context#}}", snippet: "", want: "Use: "},
		{name: "not recursive", template: "{{#context#}}", snippet: "{{#context#}}", want: "{{#context#}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := difyflow.SubstituteContext(tt.template, tt.snippet); got != tt.want {
				t.Errorf("SubstituteContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveSelector(t *testing.T) {
	vars := difyflow.NewVariables("q")
	vars.Set("kb.result", "FACTS")

	tests := []struct {
		selector []string
		want     string
	}{
		{selector: []string{"kb", "result"}, want: "FACTS"},
		{selector: []string{"kb", "text"}, want: ""},
		{selector: []string{"kb"}, want: ""},
		{selector: nil, want: ""},
		{selector: []string{"sys", "query"}, want: "q"},
	}

	for _, tt := range tests {
		if got := difyflow.ResolveSelector(vars, tt.selector); got != tt.want {
			t.Errorf("ResolveSelector(%v) = %q, want %q", tt.selector, got, tt.want)
		}
	}
}

func TestVariables(t *testing.T) {
	vars := difyflow.NewVariables("hello")
	if vars.Query() != "hello" {
		t.Errorf("Query() = %q, want hello", vars.Query())
	}

	vars.Set(difyflow.VarKey("n1", difyflow.FieldText), "out")
	if v, ok := vars.Get("n1.text"); !ok || v != "out" {
		t.Errorf("Get(n1.text) = %q, %v", v, ok)
	}
	if vars.Len() != 2 {
		t.Errorf("Len() = %d, want 2", vars.Len())
	}

	snap := vars.Snapshot()
	snap["n1.text"] = "changed"
	if v, _ := vars.Get("n1.text"); v != "out" {
		t.Errorf("snapshot mutation leaked: %q", v)
	}
}
