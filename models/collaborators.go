// Package models declares the model collaborators the pipeline depends on
// and the registry that hands out their process-wide handles.
package models

import (
	"context"

	"github.com/vijay-svsk/call-summarizer/audio"
)

// TimedText is a transcribed span with offsets in seconds.
type TimedText struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the ASR output. Text is empty for silence.
type Transcript struct {
	Text     string      `json:"text"`
	Language string      `json:"language,omitempty"`
	Segments []TimedText `json:"segments,omitempty"`
}

// SpeakerTurn is one diarized span.
type SpeakerTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Sentiment is a text classification. Confidence is in [0,1]; Scores, when
// the model exposes them, is the per-label distribution.
type Sentiment struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// AudioFeatures are the prosodic cues used for audio sentiment.
type AudioFeatures struct {
	PitchMedianHz float64 `json:"pitch_median_hz"`
	RMS           float64 `json:"rms"`
}

// NoiseFeatures describe the recording's background.
type NoiseFeatures struct {
	ZeroCrossingRate float64 `json:"zcr"`
	SpectralCentroid float64 `json:"spectral_centroid"`
	RMS              float64 `json:"rms"`
	// BackgroundNoise is a 0-100 estimate.
	BackgroundNoise float64 `json:"background_noise"`
}

// Entity is a named entity found in the transcript.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Topics is the keyword/entity extraction output.
type Topics struct {
	Keywords []string `json:"keywords"`
	Entities []Entity `json:"entities"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, a *audio.Asset) (Transcript, error)
}

type Diarizer interface {
	Diarize(ctx context.Context, a *audio.Asset) ([]SpeakerTurn, error)
}

// Denoiser returns the cleaned payload in the same container format.
type Denoiser interface {
	Denoise(ctx context.Context, a *audio.Asset) ([]byte, error)
}

type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, text string) (Sentiment, error)
}

type AudioSentimentAnalyzer interface {
	AnalyzeAudio(ctx context.Context, a *audio.Asset) (AudioFeatures, error)
}

type NoiseEstimator interface {
	EstimateNoise(ctx context.Context, a *audio.Asset) (NoiseFeatures, error)
}

type TopicExtractor interface {
	ExtractTopics(ctx context.Context, text string) (Topics, error)
}

// NarrativeGenerator produces free text with an embedded structured block.
// The output is not trusted to be well formed.
type NarrativeGenerator interface {
	GenerateNarrative(ctx context.Context, a *audio.Asset, transcript string) (string, error)
}
