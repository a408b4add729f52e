package gateway

import (
	"context"

	"github.com/agentstation/difyflow"
)

// DefaultPassage is what a zero StaticRetriever returns.
const DefaultPassage = "This is a simulated knowledge retrieval result containing information relevant to the query."

// StaticRetriever returns the same passage for every query.
type StaticRetriever struct {
	Passage string
}

var _ difyflow.Retriever = StaticRetriever{}

// Retrieve returns the configured passage, or DefaultPassage.
func (s StaticRetriever) Retrieve(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Passage == "" {
		return DefaultPassage, nil
	}
	return s.Passage, nil
}
