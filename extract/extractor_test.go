package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

func TestExtract_TrailingComma(t *testing.T) {
	raw := "[JSON]\n{\"theme\": \"billing\", \"number_of_speakers\": 2,}"

	res, err := New().Extract(raw, DefaultMarkers)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := map[string]any{"theme": "billing", "number_of_speakers": float64(2)}
	if !reflect.DeepEqual(res.Structured, want) {
		t.Errorf("expected %v, got %v", want, res.Structured)
	}
	if res.Lenient {
		t.Error("fixed chain should be enough, lenient fallback not expected")
	}
}

func TestExtract_MissingMarker(t *testing.T) {
	raw := "The call went well. {\"theme\": \"billing\"}"

	_, err := New().Extract(raw, DefaultMarkers)
	if !apperr.Is(err, apperr.KindMissingSectionMarker) {
		t.Fatalf("expected MissingSectionMarker, got %v", err)
	}
	e, _ := apperr.As(err)
	if e.Raw != raw {
		t.Errorf("expected raw text on the error, got %q", e.Raw)
	}
}

func TestExtract_NarrativeAndNestedBraces(t *testing.T) {
	raw := `[TEXT ANALYSIS]
The agent {politely} resolved the issue.

[JSON]
Here is the data:
{"theme": "refund", "mood_analysis": {"agent": {"happy": 60, "neutral": 40}}}
Trailing note {ignored}`

	res, err := New().Extract(raw, DefaultMarkers)
	if err == nil {
		t.Fatalf("expected greedy capture to include trailing braces and fail, got %v", res.Structured)
	}
	if !apperr.Is(err, apperr.KindMalformedStructuredBlock) {
		t.Fatalf("expected MalformedStructuredBlock, got %v", err)
	}

	raw = strings.TrimSuffix(raw, "\nTrailing note {ignored}")
	res, err = New().Extract(raw, DefaultMarkers)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Narrative != "The agent {politely} resolved the issue." {
		t.Errorf("unexpected narrative %q", res.Narrative)
	}
	mood, ok := res.Structured["mood_analysis"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested mood_analysis, got %T", res.Structured["mood_analysis"])
	}
	if _, ok := mood["agent"]; !ok {
		t.Error("expected agent mood")
	}
}

func TestExtract_FullRepairChain(t *testing.T) {
	raw := "[TEXT ANALYSIS]\nSummary.\n[JSON]\n{\n" +
		"  “theme”: “billing”, // primary topic\n" +
		"  \"transcription\": \"customer said\" hello\",\n" +
		"  \"key_topics\": [\"refund\", \"invoice\",],\n" +
		"}"

	res, err := New().Extract(raw, DefaultMarkers)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Structured["theme"] != "billing" {
		t.Errorf("expected theme billing, got %v", res.Structured["theme"])
	}
	if res.Structured["transcription"] != "customer said' hello" {
		t.Errorf("unexpected transcription %q", res.Structured["transcription"])
	}
	topics, _ := res.Structured["key_topics"].([]any)
	if len(topics) != 2 {
		t.Errorf("expected 2 topics, got %v", topics)
	}
	if res.Narrative != "Summary." {
		t.Errorf("unexpected narrative %q", res.Narrative)
	}
}

func TestExtract_MalformedBlock(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no block", "[JSON]\nnothing here"},
		{"unterminated", "[JSON]\n{\"theme\": \"billing\""},
		{"unparseable", "[JSON]\n{theme: billing}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New().Extract(tc.raw, DefaultMarkers)
			if !apperr.Is(err, apperr.KindMalformedStructuredBlock) {
				t.Fatalf("expected MalformedStructuredBlock, got %v", err)
			}
			e, _ := apperr.As(err)
			if e.Raw == "" && tc.name != "no block" {
				t.Error("expected post-repair text on the error")
			}
		})
	}
}

func TestExtract_LenientFallback(t *testing.T) {
	raw := "[JSON]\n{theme: 'billing', speakers: 2}"

	if _, err := New().Extract(raw, DefaultMarkers); err == nil {
		t.Fatal("strict extractor should reject unquoted keys")
	}
	res, err := New(WithLenientFallback(true)).Extract(raw, DefaultMarkers)
	if err != nil {
		t.Fatalf("lenient extraction failed: %v", err)
	}
	if !res.Lenient {
		t.Error("expected Lenient flag")
	}
	if res.Structured["theme"] != "billing" {
		t.Errorf("expected theme billing, got %v", res.Structured["theme"])
	}
}

func TestExtract_CustomMarker(t *testing.T) {
	raw := "## Analysis\nok\n<<DATA>>{\"a\": 1}"
	res, err := New().Extract(raw, Markers{Structured: "<<DATA>>", Title: "## Analysis"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Narrative != "ok" {
		t.Errorf("unexpected narrative %q", res.Narrative)
	}
}
