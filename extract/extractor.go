// Package extract splits free-form model output into a narrative and an
// embedded structured block, repairing the block's common defects before
// parsing it.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// Markers names the section labels in the model output.
type Markers struct {
	// Structured precedes the structured block, e.g. "[JSON]".
	Structured string `mapstructure:"structured" yaml:"structured"`
	// Title is an optional label leading the narrative, e.g. "[TEXT ANALYSIS]".
	Title string `mapstructure:"title" yaml:"title"`
}

// DefaultMarkers matches the format requested from the narrative generator.
var DefaultMarkers = Markers{Structured: "[JSON]", Title: "[TEXT ANALYSIS]"}

// Result is a successful extraction.
type Result struct {
	Narrative  string
	Structured map[string]any
	// Repaired is the block text after the repair chain ran.
	Repaired string
	// Lenient is set when the block only parsed after the fallback repairer.
	Lenient bool
}

// Extractor runs the marker lookup, block capture, repair chain and parse.
type Extractor struct {
	rules   []Rule
	lenient bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules replaces the repair chain.
func WithRules(rules ...Rule) Option {
	return func(e *Extractor) { e.rules = rules }
}

// WithLenientFallback enables a last-resort general JSON repair when the
// fixed chain still leaves the block unparseable.
func WithLenientFallback(enabled bool) Option {
	return func(e *Extractor) { e.lenient = enabled }
}

// New creates an Extractor with the default repair chain.
func New(opts ...Option) *Extractor {
	e := &Extractor{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Repair applies the repair chain to block in order.
func (e *Extractor) Repair(block string) string {
	for _, r := range e.rules {
		block = r.Apply(block)
	}
	return block
}

// Extract splits raw at the structured marker and parses the block after it.
// Failures are *apperr.Error of kind MissingSectionMarker or
// MalformedStructuredBlock; the latter carries the post-repair text.
func (e *Extractor) Extract(raw string, m Markers) (*Result, error) {
	if m.Structured == "" {
		m.Structured = DefaultMarkers.Structured
	}
	idx := strings.Index(raw, m.Structured)
	if idx < 0 {
		return nil, apperr.Newf(apperr.KindMissingSectionMarker, "section marker %q not found", m.Structured).
			WithRaw(raw).
			WithDetail("marker", m.Structured)
	}

	rest := raw[idx+len(m.Structured):]
	open := strings.IndexByte(rest, '{')
	closing := strings.LastIndexByte(rest, '}')
	if open < 0 || closing < open {
		return nil, apperr.New(apperr.KindMalformedStructuredBlock, "no brace-delimited block after marker").
			WithRaw(strings.TrimSpace(rest))
	}

	repaired := e.Repair(rest[open : closing+1])
	structured, err := parseObject(repaired)
	lenient := false
	if err != nil && e.lenient {
		if fixed, rerr := jsonrepair.JSONRepair(repaired); rerr == nil {
			if obj, perr := parseObject(fixed); perr == nil {
				structured, err, lenient = obj, nil, true
			}
		}
	}
	if err != nil {
		return nil, apperr.New(apperr.KindMalformedStructuredBlock, "structured block is not valid JSON").
			WithRaw(repaired).
			WithCause(err)
	}

	return &Result{
		Narrative:  narrative(raw[:idx], m.Title),
		Structured: structured,
		Repaired:   repaired,
		Lenient:    lenient,
	}, nil
}

func parseObject(block string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func narrative(head, title string) string {
	head = strings.TrimSpace(head)
	if title != "" {
		head = strings.TrimSpace(strings.TrimPrefix(head, title))
	}
	return head
}
