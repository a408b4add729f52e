package main

import (
	"encoding/json"
	"fmt"
	"io"

	goyaml "github.com/goccy/go-yaml"
)

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case jsonFormat:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case yamlFormat:
		data, err := goyaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return text(w)
	}
}
