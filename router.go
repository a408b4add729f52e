package difyflow

import "strings"

// Route picks the edge to follow out of source.
//
// With a non-blank hint the first edge, in declaration order, whose
// SourceHandle equals the trimmed hint wins. Without a hint, or when no
// handle matches, the default is the first unlabeled edge, or the first
// edge leaving source when every edge carries a handle. The second result
// is false when source has no outgoing edges, which ends the run.
func Route(g *Graph, source, hint string) (Edge, bool) {
	edges := g.bySource[source]
	if len(edges) == 0 {
		return Edge{}, false
	}

	if hint = strings.TrimSpace(hint); hint != "" {
		for _, e := range edges {
			if e.SourceHandle == hint {
				return e, true
			}
		}
	}

	for _, e := range edges {
		if e.SourceHandle == "" {
			return e, true
		}
	}
	return edges[0], true
}

// routeMatched reports whether the edge was chosen by its handle rather
// than as the default.
func routeMatched(e Edge, hint string) bool {
	hint = strings.TrimSpace(hint)
	return hint != "" && e.SourceHandle == hint
}
