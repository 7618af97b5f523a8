// Package report merges pipeline stage outputs into the final analysis
// record and serializes it.
package report

import (
	"time"

	"github.com/vijay-svsk/call-summarizer/apperr"
	"github.com/vijay-svsk/call-summarizer/models"
	"github.com/vijay-svsk/call-summarizer/signal"
)

// PrimaryGroup is the sentiment group every record must carry.
const PrimaryGroup = "sentiment"

// Narrative sources.
const (
	SourceModel      = "model"
	SourceExtractive = "extractive"
)

// Segment is one speaker turn with the text spoken in it. Offsets are in
// seconds. Segments may overlap.
type Segment struct {
	Speaker string  `json:"speaker" yaml:"speaker"`
	Start   float64 `json:"start" yaml:"start"`
	End     float64 `json:"end" yaml:"end"`
	Text    string  `json:"text" yaml:"text"`
}

// Scores are the scalar outputs. Ratios are on [0,1].
type Scores struct {
	Interaction           Optional[signal.CompositeScore] `json:"interaction" yaml:"interaction"`
	TextSentiment         Optional[float64]               `json:"text_sentiment" yaml:"text_sentiment"`
	AudioSentiment        Optional[float64]               `json:"audio_sentiment" yaml:"audio_sentiment"`
	Engagement            Optional[float64]               `json:"engagement" yaml:"engagement"`
	ResponseEffectiveness Optional[float64]               `json:"response_effectiveness" yaml:"response_effectiveness"`
	SalesConversion       Optional[float64]               `json:"sales_conversion" yaml:"sales_conversion"`
	ChurnRisk             Optional[float64]               `json:"churn_risk" yaml:"churn_risk"`
	BackgroundNoise       Optional[float64]               `json:"background_noise" yaml:"background_noise"`
	OverlapRate           Optional[float64]               `json:"overlap_rate" yaml:"overlap_rate"`
}

// Lists are the list-valued findings.
type Lists struct {
	Topics              Optional[[]string]        `json:"topics" yaml:"topics"`
	Entities            Optional[[]models.Entity] `json:"entities" yaml:"entities"`
	KeyTopics           Optional[[]string]        `json:"key_topics" yaml:"key_topics"`
	PainPoints          Optional[[]string]        `json:"pain_points" yaml:"pain_points"`
	Insights            Optional[[]string]        `json:"actionable_insights" yaml:"actionable_insights"`
	CompetitiveMentions Optional[[]string]        `json:"competitive_mentions" yaml:"competitive_mentions"`
}

// Flags are the boolean findings.
type Flags struct {
	Escalation       Optional[bool] `json:"issue_escalation" yaml:"issue_escalation"`
	FollowUpRequired Optional[bool] `json:"follow_up_required" yaml:"follow_up_required"`
}

// Details are the scalar descriptors taken from the structured block.
type Details struct {
	Theme           Optional[string] `json:"theme" yaml:"theme"`
	SpeakerCount    Optional[int]    `json:"number_of_speakers" yaml:"number_of_speakers"`
	FollowUpSummary Optional[string] `json:"follow_up_summary" yaml:"follow_up_summary"`
	CallDuration    Optional[string] `json:"call_duration" yaml:"call_duration"`
	ResolutionTime  Optional[string] `json:"resolution_time" yaml:"resolution_time"`
}

// StageFailure annotates a record with an optional stage that did not
// complete.
type StageFailure struct {
	Stage   string      `json:"stage" yaml:"stage"`
	Code    string      `json:"code" yaml:"code"`
	Kind    apperr.Kind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
	Raw     string      `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// FailureFrom converts err into an annotation for stage.
func FailureFrom(stage string, err error) StageFailure {
	e := apperr.From(err)
	f := StageFailure{Stage: stage, Code: e.Kind.Code(), Kind: e.Kind, Message: e.Error(), Raw: e.Raw}
	if e.Stage != "" {
		f.Stage = e.Stage
	}
	return f
}

// Record is the analysis of one call. It is built once by an Assembler and
// must not be modified afterwards.
type Record struct {
	ID              string                  `json:"id" yaml:"id"`
	AudioID         string                  `json:"audio_id" yaml:"audio_id"`
	AudioName       string                  `json:"audio_name" yaml:"audio_name"`
	CreatedAt       time.Time               `json:"created_at" yaml:"created_at"`
	DurationSeconds float64                 `json:"duration_seconds" yaml:"duration_seconds"`
	Narrative       string                  `json:"narrative" yaml:"narrative"`
	NarrativeSource string                  `json:"narrative_source" yaml:"narrative_source"`
	Transcript      string                  `json:"transcript" yaml:"transcript"`
	Segments        []Segment               `json:"segments" yaml:"segments"`
	NoSpeech        bool                    `json:"no_speech" yaml:"no_speech"`
	Groups          map[string]signal.Group `json:"groups" yaml:"groups"`
	Scores          Scores                  `json:"scores" yaml:"scores"`
	Lists           Lists                   `json:"lists" yaml:"lists"`
	Flags           Flags                   `json:"flags" yaml:"flags"`
	Details         Details                 `json:"details" yaml:"details"`
	Structured      map[string]any          `json:"structured,omitempty" yaml:"structured,omitempty"`
	RawSignals      []signal.RawSignal      `json:"raw_signals,omitempty" yaml:"raw_signals,omitempty"`
	PartialFailures []StageFailure          `json:"partial_failures,omitempty" yaml:"partial_failures,omitempty"`
}

// Group returns the named signal group.
func (r *Record) Group(name string) (signal.Group, bool) {
	g, ok := r.Groups[name]
	return g, ok
}

// Failed reports whether stage left a partial-failure annotation.
func (r *Record) Failed(stage string) bool {
	for _, f := range r.PartialFailures {
		if f.Stage == stage {
			return true
		}
	}
	return false
}
