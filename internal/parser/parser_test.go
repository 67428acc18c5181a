package parser

import (
	"reflect"
	"testing"
)

var twistSchema = Schema{
	Name: "plot-twist",
	Fields: []Field{
		{Key: "title", Default: "Unexpected Turn"},
		{Key: "description", Default: "Something shifts in the story."},
		{Key: "category", Aliases: []string{"type"}, Default: "Revelation"},
		{Key: "impact", Default: "High"},
	},
}

type recordingObserver struct {
	calls []string
}

func (r *recordingObserver) ObserveParse(schema, strategy string) {
	r.calls = append(r.calls, schema+":"+strategy)
}

func TestParseJSONObject(t *testing.T) {
	p := NewParser()
	raw := "Here is your twist:\n```json\n" +
		`{"title": "The Mirror Lies", "description": "Her reflection has been acting alone.", "category": "Identity", "impact": "High"}` +
		"\n```"

	got := p.Parse(raw, twistSchema)

	expected := Record{
		"title":       "The Mirror Lies",
		"description": "Her reflection has been acting alone.",
		"category":    "Identity",
		"impact":      "High",
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseFillsMissingFieldsWithDefaults(t *testing.T) {
	p := NewParser()

	got := p.Parse(`{"title": "Only A Title"}`, twistSchema)

	if got["title"] != "Only A Title" {
		t.Errorf("Expected title from JSON, got %q", got["title"])
	}
	if got["impact"] != "High" {
		t.Errorf("Expected default impact, got %q", got["impact"])
	}
	if len(got) != len(twistSchema.Fields) {
		t.Errorf("Expected %d fields, got %d", len(twistSchema.Fields), len(got))
	}
}

func TestParseCoercesNonStringValues(t *testing.T) {
	schema := Schema{Name: "character", Fields: []Field{
		{Key: "age"},
		{Key: "traits"},
		{Key: "alive"},
		{Key: "relationships"},
	}}
	raw := `{"age": 42, "traits": ["brave", "stubborn"], "alive": true, "relationships": {"sister": "Mara"}}`

	got := NewParser().Parse(raw, schema)

	expected := Record{
		"age":           "42",
		"traits":        "brave, stubborn",
		"alive":         "true",
		"relationships": `{"sister":"Mara"}`,
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseJSONKeysAreCaseInsensitiveAndAliased(t *testing.T) {
	got := NewParser().Parse(`{"Title": "Late Arrival", "TYPE": "Betrayal"}`, twistSchema)

	if got["title"] != "Late Arrival" {
		t.Errorf("Expected title %q, got %q", "Late Arrival", got["title"])
	}
	if got["category"] != "Betrayal" {
		t.Errorf("Expected category from alias, got %q", got["category"])
	}
}

func TestParseFallsBackToLabeledLines(t *testing.T) {
	raw := `Title: The Quiet Heir
Description: The gardener was the king's son all along.
impact: Medium`

	got := NewParser().Parse(raw, twistSchema)

	expected := Record{
		"title":       "The Quiet Heir",
		"description": "The gardener was the king's son all along.",
		"category":    "Revelation",
		"impact":      "Medium",
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseLabeledLinesWithMarkdown(t *testing.T) {
	raw := "**Title:** Salt and Iron\n**Category:** Alliance"

	got := NewParser().Parse(raw, twistSchema)

	if got["title"] != "Salt and Iron" {
		t.Errorf("Expected %q, got %q", "Salt and Iron", got["title"])
	}
	if got["category"] != "Alliance" {
		t.Errorf("Expected %q, got %q", "Alliance", got["category"])
	}
}

func TestParseMalformedJSONUsesLines(t *testing.T) {
	raw := `{"title": "Broken", description: oops
Title: Recovered`

	got := NewParser().Parse(raw, twistSchema)

	if got["title"] != "Recovered" {
		t.Errorf("Expected line strategy to recover title, got %q", got["title"])
	}
}

func TestParseTruncatedJSONLineIsNotLabeled(t *testing.T) {
	tests := []string{
		`{"title": "Ember Crown", "description": "The queen was the dragon all along", "category": "Char`,
		`{"title": null}`,
	}

	for _, raw := range tests {
		got := NewParser().Parse(raw, twistSchema)
		for _, f := range twistSchema.Fields {
			if got[f.Key] != f.Default {
				t.Errorf("Parse(%q): expected default %q for %s, got %q", raw, f.Default, f.Key, got[f.Key])
			}
		}
	}
}

func TestParseLabeledValueTrimsQuotes(t *testing.T) {
	raw := "Title: \"The Tide Clock\"\nThe summary is: Description: It runs backwards."

	got := NewParser().Parse(raw, twistSchema)

	if got["title"] != "The Tide Clock" {
		t.Errorf("Expected %q, got %q", "The Tide Clock", got["title"])
	}
	if got["description"] != "It runs backwards." {
		t.Errorf("Expected %q, got %q", "It runs backwards.", got["description"])
	}
}

func TestParseUnstructuredTextReturnsDefaults(t *testing.T) {
	obs := &recordingObserver{}
	p := NewParser(WithObserver(obs))

	got := p.Parse("The storm rolled in and nobody noticed.", twistSchema)

	for _, f := range twistSchema.Fields {
		if got[f.Key] != f.Default {
			t.Errorf("Expected default %q for %s, got %q", f.Default, f.Key, got[f.Key])
		}
	}
	if want := []string{"plot-twist:defaults"}; !reflect.DeepEqual(obs.calls, want) {
		t.Errorf("Expected observer calls %v, got %v", want, obs.calls)
	}
}

func TestParseReportsStrategy(t *testing.T) {
	obs := &recordingObserver{}
	p := NewParser(WithObserver(obs))

	p.Parse(`{"title": "x"}`, twistSchema)
	p.Parse("Title: y", twistSchema)

	want := []string{"plot-twist:json", "plot-twist:lines"}
	if !reflect.DeepEqual(obs.calls, want) {
		t.Errorf("Expected observer calls %v, got %v", want, obs.calls)
	}
}

func TestParseList(t *testing.T) {
	schema := Schema{Name: "suggestions", Fields: []Field{
		{Key: "title", Default: "Untitled"},
		{Key: "synopsis", Default: "No synopsis"},
		{Key: "plotPoints", Default: ""},
	}}
	raw := "Sure!\n[" +
		`{"title": "Glass Harbor", "synopsis": "A port city built on a frozen sea.", "plotPoints": ["thaw", "exodus"]},` +
		`{"title": "The Ninth Bell"}` +
		"]\nEnjoy."

	got, ok := NewParser().ParseList(raw, schema)
	if !ok {
		t.Fatal("Expected list to parse")
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0]["plotPoints"] != "thaw, exodus" {
		t.Errorf("Expected joined plot points, got %q", got[0]["plotPoints"])
	}
	if got[1]["synopsis"] != "No synopsis" {
		t.Errorf("Expected default synopsis, got %q", got[1]["synopsis"])
	}
}

func TestParseListOfStrings(t *testing.T) {
	schema := Schema{Name: "prompts", Fields: []Field{{Key: "prompt"}, {Key: "description", Default: "Writing prompt"}}}

	got, ok := NewParser().ParseList(`["A lighthouse keeper finds a letter", "  "]`, schema)
	if !ok {
		t.Fatal("Expected list to parse")
	}
	if len(got) != 1 || got[0]["prompt"] != "A lighthouse keeper finds a letter" {
		t.Errorf("Unexpected records: %v", got)
	}
}

func TestParseListRejectsNonArrays(t *testing.T) {
	tests := []string{"", "no brackets here", "[]", "[not json]"}
	for _, raw := range tests {
		if _, ok := NewParser().ParseList(raw, twistSchema); ok {
			t.Errorf("Expected %q not to parse as a list", raw)
		}
	}
}

func TestNumberedLines(t *testing.T) {
	raw := `1. A clockmaker builds a heart.

2) The moon files a complaint.
- A dragon hoards recipes.
* Rain that falls upward.`

	got := NumberedLines(raw, 3)

	expected := []string{
		"A clockmaker builds a heart.",
		"The moon files a complaint.",
		"A dragon hoards recipes.",
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if all := NumberedLines(raw, 0); len(all) != 4 {
		t.Errorf("Expected 4 lines without a limit, got %d", len(all))
	}
}

func TestRecordDecode(t *testing.T) {
	type twist struct {
		Title  string `mapstructure:"title"`
		Impact string `mapstructure:"impact"`
	}
	var out twist
	if err := (Record{"title": "Ashes", "impact": "Low", "extra": "ignored"}).Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Title != "Ashes" || out.Impact != "Low" {
		t.Errorf("Unexpected decode result: %+v", out)
	}
}

func TestExtractObjectIsGreedy(t *testing.T) {
	got, ok := ExtractObject(`prefix {"a": {"b": 1}} middle {"c": 2} suffix`)
	if !ok {
		t.Fatal("Expected a span")
	}
	if got != `{"a": {"b": 1}} middle {"c": 2}` {
		t.Errorf("Unexpected span %q", got)
	}
}
