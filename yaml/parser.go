package yaml

import (
	"bytes"
	"fmt"
	"io"
	"os"

	goyaml "github.com/goccy/go-yaml"
)

// Parser decodes Dify DSL documents.
type Parser struct {
	validate bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithoutSchemaValidation skips the JSON schema check.
func WithoutSchemaValidation() ParserOption {
	return func(p *Parser) {
		p.validate = false
	}
}

// NewParser creates a parser that validates documents against the DSL schema.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{validate: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads and decodes a document.
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	raw, err := p.decodeRaw(data)
	if err != nil {
		return nil, err
	}
	if p.validate {
		if err := ValidateSchema(raw); err != nil {
			return nil, err
		}
	}

	var doc Document
	if err := goyaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// ParseFile reads and decodes a document from a file.
func (p *Parser) ParseFile(filename string) (*Document, error) {
	// #nosec G304 - callers choose which workflow files to load
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return p.Parse(file)
}

// ParseString decodes a document from a string.
func (p *Parser) ParseString(s string) (*Document, error) {
	return p.Parse(bytes.NewReader([]byte(s)))
}

// Marshal encodes a document as YAML.
func (p *Parser) Marshal(doc *Document) ([]byte, error) {
	data, err := goyaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// MarshalToFile writes a document to a YAML file.
func (p *Parser) MarshalToFile(doc *Document, filename string) error {
	data, err := p.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o600)
}

func (p *Parser) decodeRaw(data []byte) (any, error) {
	var raw any
	if err := goyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	return raw, nil
}
