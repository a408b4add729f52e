package difyflow

import "maps"

// KeySysQuery holds the user query of a run.
const KeySysQuery = "sys.query"

// Variable fields written by node handlers.
const (
	FieldText   = "text"
	FieldResult = "result"
	FieldClass  = "class"
)

// VarKey builds the "<nodeID>.<field>" key under which a node publishes a value.
func VarKey(nodeID, field string) string {
	return nodeID + "." + field
}

// Variables is the execution context of a single run: a string key/value
// store threaded through every node visit. It belongs to one run and is not
// safe for concurrent use.
type Variables struct {
	values map[string]string
}

// NewVariables creates the context for a run seeded with the query.
func NewVariables(query string) *Variables {
	return &Variables{
		values: map[string]string{KeySysQuery: query},
	}
}

// Get returns the value stored under key.
func (v *Variables) Get(key string) (string, bool) {
	val, ok := v.values[key]
	return val, ok
}

// GetOrDefault returns the value stored under key or def when absent.
func (v *Variables) GetOrDefault(key, def string) string {
	if val, ok := v.values[key]; ok {
		return val
	}
	return def
}

// Set stores value under key.
func (v *Variables) Set(key, value string) {
	v.values[key] = value
}

// Query returns the user query.
func (v *Variables) Query() string {
	return v.values[KeySysQuery]
}

// Len returns the number of stored values.
func (v *Variables) Len() int {
	return len(v.values)
}

// Snapshot returns a copy of all values.
func (v *Variables) Snapshot() map[string]string {
	return maps.Clone(v.values)
}
