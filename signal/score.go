package signal

import (
	"math"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// Weights is the composite score policy. Text and Audio must be
// non-negative and sum to 1.
type Weights struct {
	Text  float64 `mapstructure:"text_weight" yaml:"text_weight" json:"text"`
	Audio float64 `mapstructure:"audio_weight" yaml:"audio_weight" json:"audio"`
}

// DefaultWeights favors the text classifier.
var DefaultWeights = Weights{Text: 0.6, Audio: 0.4}

const weightTolerance = 1e-9

// Validate checks the weights form a convex combination.
func (w Weights) Validate() error {
	if w.Text < 0 || w.Audio < 0 {
		return apperr.Newf(apperr.KindInvalidInput, "weights must be non-negative: text=%v audio=%v", w.Text, w.Audio)
	}
	if math.Abs(w.Text+w.Audio-1) > weightTolerance {
		return apperr.Newf(apperr.KindInvalidInput, "weights must sum to 1: text=%v audio=%v", w.Text, w.Audio)
	}
	return nil
}

// CompositeScore is the weighted interaction score and the inputs behind it.
type CompositeScore struct {
	Value   float64 `json:"value" yaml:"value"`
	Text    float64 `json:"text" yaml:"text"`
	Audio   float64 `json:"audio" yaml:"audio"`
	Weights Weights `json:"weights" yaml:"weights"`
}

// Scorer combines text- and audio-derived sentiment into one score.
type Scorer struct {
	weights Weights
}

// NewScorer validates w and returns a Scorer.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the configured policy.
func (s *Scorer) Weights() Weights { return s.weights }

// Score remaps the bipolar audio signal from [-1,1] onto [0,1] and combines
// it with the text signal in [0,1].
func (s *Scorer) Score(audioBipolar, text float64) (CompositeScore, error) {
	return s.Combine(FromBipolar(audioBipolar), text)
}

// Combine returns round(wText*text + wAudio*audio, 2). Inputs are on [0,1];
// a result outside [0,1] is a contract violation and is never clamped.
func (s *Scorer) Combine(audio, text float64) (CompositeScore, error) {
	// float64() conversions forbid fused multiply-add.
	v := float64(s.weights.Text*text) + float64(s.weights.Audio*audio)
	if !inUnit(text) || !inUnit(audio) || !inUnit(v) {
		return CompositeScore{}, apperr.Newf(apperr.KindScoreOutOfRange,
			"composite %v outside [0,1] (text=%v audio=%v)", v, text, audio).
			WithDetail("text", text).
			WithDetail("audio", audio)
	}
	return CompositeScore{
		Value:   Round2(v),
		Text:    text,
		Audio:   audio,
		Weights: s.weights,
	}, nil
}

func inUnit(x float64) bool {
	return !math.IsNaN(x) && x >= -weightTolerance && x <= 1+weightTolerance
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
