package main

import (
	"context"
	"strings"

	"github.com/agentstation/difyflow"
)

// echoModel is a deterministic offline language model. Classifier prompts
// get the first category whose id appears in the question, else the first
// category; every other call echoes the last message.
type echoModel struct{}

func (echoModel) Complete(ctx context.Context, messages []difyflow.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}
	last := messages[len(messages)-1].Text
	if len(messages) == 1 {
		if id, ok := classify(last); ok {
			return id, nil
		}
	}
	return "echo: " + last, nil
}

// classify picks a category from a classifier prompt.
func classify(prompt string) (string, bool) {
	question, categories, ok := strings.Cut(prompt, "\n\nCategories:\n")
	if !ok {
		return "", false
	}
	_, question, _ = strings.Cut(question, "Question: ")
	question = strings.ToLower(question)

	var first string
	for _, line := range strings.Split(categories, "\n") {
		rest, ok := strings.CutPrefix(line, "- ID: ")
		if !ok {
			continue
		}
		id, _, _ := strings.Cut(rest, ", Name: ")
		if first == "" {
			first = id
		}
		if id != "" && strings.Contains(question, strings.ToLower(id)) {
			return id, true
		}
	}
	return first, first != ""
}
