package descriptor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/yamlutil"
)

// ErrDuplicateID is returned when two documents declare the same id.
var ErrDuplicateID = errors.New("duplicate descriptor id")

// Parser parses raw catalogs into descriptors.
type Parser interface {
	Parse(ctx context.Context, data []byte) ([]*Descriptor, error)
}

// compile-time interface conformance check.
var _ Parser = (*DefaultParser)(nil)

// DefaultParser is the default implementation of the Parser interface.
type DefaultParser struct {
	strict bool
	source string
}

// ParserOption configures a DefaultParser.
type ParserOption func(*DefaultParser)

// WithStrict rejects documents carrying unknown fields.
func WithStrict(strict bool) ParserOption {
	return func(p *DefaultParser) {
		p.strict = strict
	}
}

// WithSource records path as the Source of every parsed descriptor.
func WithSource(path string) ParserOption {
	return func(p *DefaultParser) {
		p.source = path
	}
}

// NewParser creates a new DefaultParser.
func NewParser(opts ...ParserOption) *DefaultParser {
	p := &DefaultParser{}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse splits the catalog into documents and parses each into a
// Descriptor. Documents without an id are skipped. The result is never nil.
func (p *DefaultParser) Parse(ctx context.Context, data []byte) ([]*Descriptor, error) {
	docs := yamlutil.Documents(data)
	out := make([]*Descriptor, 0, len(docs))
	seen := make(map[string]int, len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := p.parseDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("parsing document %d (line %d): %w", doc.Index+1, doc.Line, err)
		}

		if d == nil {
			continue
		}

		if line, dup := seen[d.Key]; dup {
			return nil, fmt.Errorf("%w %q at line %d, first defined at line %d", ErrDuplicateID, d.Key, doc.Line, line)
		}

		seen[d.Key] = doc.Line
		out = append(out, d)
	}

	return out, nil
}

// parseDocument returns nil (no error) if the document has no id.
func (p *DefaultParser) parseDocument(doc yamlutil.Document) (*Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(doc.Body))
	dec.KnownFields(p.strict)

	var d Descriptor
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("unmarshaling YAML: %w", err)
	}

	if d.Key == "" {
		return nil, nil
	}

	for i, k := range d.ApplicableTo {
		kind, err := scope.ParseKind(string(k))
		if err != nil {
			return nil, fmt.Errorf("descriptor %q: applicableTo: %w", d.Key, err)
		}

		d.ApplicableTo[i] = kind
	}

	d.Source = p.source
	d.Line = doc.Line

	return &d, nil
}

// LoadFile reads and parses the catalog at path.
func LoadFile(ctx context.Context, path string, opts ...ParserOption) ([]*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	opts = append([]ParserOption{WithSource(path)}, opts...)

	ds, err := NewParser(opts...).Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", path, err)
	}

	return ds, nil
}

// LoadFiles loads every catalog in order and concatenates them. An id
// declared in two catalogs is an error.
func LoadFiles(ctx context.Context, paths []string, opts ...ParserOption) ([]*Descriptor, error) {
	out := make([]*Descriptor, 0)
	seen := make(map[string]string)

	for _, path := range paths {
		ds, err := LoadFile(ctx, path, opts...)
		if err != nil {
			return nil, err
		}

		for _, d := range ds {
			if first, dup := seen[d.Key]; dup {
				return nil, fmt.Errorf("%w %q in %q, first defined in %q", ErrDuplicateID, d.Key, path, first)
			}

			seen[d.Key] = path
		}

		out = append(out, ds...)
	}

	return out, nil
}
