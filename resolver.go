package difyflow

import "strings"

// ContextMarker is replaced by the context snippet inside llm prompts.
const ContextMarker = "{{#context#}}"

// FallbackAnswer is returned by answer nodes whose reference is unresolved.
const FallbackAnswer = "unable to resolve answer content"

const (
	refPrefix = "{{#"
	refSuffix = "#}}"
)

// ResolveSelector looks up the value addressed by a [nodeID, variableName]
// selector. It returns "" when the selector is incomplete or the value is
// absent.
func ResolveSelector(vars *Variables, selector []string) string {
	if len(selector) < 2 {
		return ""
	}
	return vars.GetOrDefault(VarKey(selector[0], selector[1]), "")
}

// SubstituteContext replaces every ContextMarker in template with snippet.
// The snippet itself is never scanned for markers.
func SubstituteContext(template, snippet string) string {
	if !strings.Contains(template, ContextMarker) {
		return template
	}
	return strings.ReplaceAll(template, ContextMarker, snippet)
}

// ResolveReference resolves an answer template.
//
// A template that is exactly "{{#key#}}" yields the value of key, or
// FallbackAnswer when key is absent. Any other template is a literal and is
// returned unchanged.
func ResolveReference(template string, vars *Variables) string {
	key, ok := referenceKey(template)
	if !ok {
		return template
	}
	return vars.GetOrDefault(key, FallbackAnswer)
}

// referenceKey extracts key from "{{#key#}}".
func referenceKey(template string) (string, bool) {
	if len(template) < len(refPrefix)+len(refSuffix) {
		return "", false
	}
	if !strings.HasPrefix(template, refPrefix) || !strings.HasSuffix(template, refSuffix) {
		return "", false
	}
	return template[len(refPrefix) : len(template)-len(refSuffix)], true
}
