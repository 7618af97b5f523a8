package orchestrator

import "github.com/vijay-svsk/call-summarizer/extract"

// Stage names, in execution order. The enrichment stages between
// analyze-sentiment and score run concurrently.
const (
	StageLoad           = "load"
	StageDenoise        = "denoise"
	StageTranscribe     = "transcribe"
	StageDiarize        = "diarize"
	StageSentiment      = "analyze-sentiment"
	StageAudioSentiment = "audio-sentiment"
	StageNoise          = "noise-features"
	StageTopics         = "topic-extraction"
	StageNarrative      = "narrative"
	StageScore          = "score"
	StageExtract        = "extract"
	StageAssemble       = "assemble"
)

// StructuredExtractor splits generator output into narrative and structured
// data. *extract.Extractor implements it.
type StructuredExtractor interface {
	Extract(raw string, m extract.Markers) (*extract.Result, error)
}

// Stats are the speaker-level aggregates over the call.
type Stats struct {
	SpeakingShare map[string]float64
	OverlapRate   float64
}
