package signal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

func TestScorer_CombineMatchesPolicy(t *testing.T) {
	s, err := NewScorer(DefaultWeights)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		text, audio := rng.Float64(), rng.Float64()
		if i == 0 {
			text, audio = 1, 1
		}
		if i == 1 {
			text, audio = 0, 0
		}
		got, err := s.Combine(audio, text)
		if err != nil {
			t.Fatalf("Combine(%v, %v) failed: %v", audio, text, err)
		}
		want := math.Round((float64(0.6*text)+float64(0.4*audio))*100) / 100
		if got.Value != want {
			t.Fatalf("Combine(%v, %v) = %v, want %v", audio, text, got.Value, want)
		}
		if got.Value < 0 || got.Value > 1 {
			t.Fatalf("composite %v outside [0,1]", got.Value)
		}
	}
}

func TestScorer_ScoreRemapsBipolarAudio(t *testing.T) {
	s, _ := NewScorer(DefaultWeights)

	tests := []struct {
		name  string
		audio float64
		text  float64
		want  float64
	}{
		{"neutral audio", 0, 0.9, 0.74},
		{"negative audio", -1, 0.5, 0.3},
		{"positive audio", 1, 1, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Score(tc.audio, tc.text)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if got.Value != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got.Value)
			}
		})
	}
}

func TestScorer_OutOfRangeFailsLoudly(t *testing.T) {
	s, _ := NewScorer(DefaultWeights)

	tests := []struct {
		name  string
		audio float64
		text  float64
	}{
		{"text above one", 0.5, 1.4},
		{"audio below zero", -0.2, 0.5},
		{"nan", math.NaN(), 0.5},
		{"percent passed as ratio", 0.5, 73},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Combine(tc.audio, tc.text)
			if !apperr.Is(err, apperr.KindScoreOutOfRange) {
				t.Errorf("expected ScoreOutOfRange, got %v", err)
			}
		})
	}
	if _, err := s.Score(3, 0.5); !apperr.Is(err, apperr.KindScoreOutOfRange) {
		t.Errorf("expected ScoreOutOfRange for bipolar input 3, got %v", err)
	}
}

func TestNewScorer_CustomWeights(t *testing.T) {
	s, err := NewScorer(Weights{Text: 0.5, Audio: 0.5})
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	got, _ := s.Combine(0.2, 0.8)
	if got.Value != 0.5 {
		t.Errorf("expected 0.5, got %v", got.Value)
	}

	for _, w := range []Weights{{Text: 0.7, Audio: 0.7}, {Text: -0.1, Audio: 1.1}} {
		if _, err := NewScorer(w); !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("expected InvalidInput for %+v, got %v", w, err)
		}
	}
}
