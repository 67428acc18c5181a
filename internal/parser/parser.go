// Package parser turns free-form model output into complete records.
//
// A Parser tries an ordered chain of strategies (structured JSON first, then
// "Label: value" line scanning) and fills anything still missing with the
// schema's defaults, so callers always receive every field.
package parser

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Field describes one expected field of a record.
type Field struct {
	Key     string   // Canonical key, also the JSON name
	Aliases []string // Alternative labels accepted in model output
	Default string   // Used when no strategy produces a value
}

// labels returns the key and aliases, in match order.
func (f Field) labels() []string {
	return append([]string{f.Key}, f.Aliases...)
}

// Schema is the expected shape of an intent's result.
type Schema struct {
	Name   string
	Fields []Field
}

// Record is a parsed result keyed by canonical field key.
type Record map[string]string

// Decode copies the record into a struct tagged with `mapstructure` keys.
func (r Record) Decode(out any) error {
	if err := mapstructure.Decode(map[string]string(r), out); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// Strategy extracts whatever fields it can from raw text. A nil or empty
// Record means the strategy found nothing and the next one should be tried.
type Strategy interface {
	Name() string
	Extract(raw string, schema Schema) Record
}

// Observer is told which strategy produced each record ("defaults" when none did).
type Observer interface {
	ObserveParse(schema, strategy string)
}

// Parser runs strategies in order until one yields a non-empty field set.
type Parser struct {
	strategies []Strategy
	observer   Observer
}

// Option configures a Parser.
type Option func(*Parser)

// WithStrategies replaces the default strategy chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(p *Parser) { p.strategies = strategies }
}

// WithObserver attaches a parse observer such as a metrics recorder.
func WithObserver(o Observer) Option {
	return func(p *Parser) { p.observer = o }
}

// NewParser creates a Parser with the JSON then line-scanning chain.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		strategies: []Strategy{JSONStrategy{}, LineStrategy{}},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts a complete record for schema from raw. It never fails:
// fields no strategy could fill take their defaults.
func (p *Parser) Parse(raw string, schema Schema) Record {
	used := "defaults"
	var found Record
	for _, s := range p.strategies {
		rec := s.Extract(raw, schema)
		if len(rec) > 0 {
			found = rec
			used = s.Name()
			break
		}
	}
	p.observe(schema.Name, used)
	return complete(found, schema)
}

// ParseList decodes the first JSON array in raw into complete records.
// It reports false when no non-empty array could be decoded.
func (p *Parser) ParseList(raw string, schema Schema) ([]Record, bool) {
	records, ok := extractList(raw, schema)
	if !ok {
		p.observe(schema.Name, "defaults")
		return nil, false
	}
	p.observe(schema.Name, JSONStrategy{}.Name())
	for i, rec := range records {
		records[i] = complete(rec, schema)
	}
	return records, true
}

func (p *Parser) observe(schema, strategy string) {
	if p.observer != nil {
		p.observer.ObserveParse(schema, strategy)
	}
}

// complete returns a record holding exactly the schema's fields, defaulting blanks.
func complete(found Record, schema Schema) Record {
	out := make(Record, len(schema.Fields))
	for _, f := range schema.Fields {
		v := strings.TrimSpace(found[f.Key])
		if v == "" {
			v = f.Default
		}
		out[f.Key] = v
	}
	return out
}
