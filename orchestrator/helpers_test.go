package orchestrator

import (
	"math"
	"strings"
	"testing"

	"github.com/vijay-svsk/call-summarizer/models"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSpeakerStats(t *testing.T) {
	tests := []struct {
		name    string
		turns   []models.SpeakerTurn
		span    float64
		share   map[string]float64
		overlap float64
	}{
		{
			name:  "empty",
			share: map[string]float64{},
		},
		{
			name:    "overlapping pair",
			turns:   []models.SpeakerTurn{{Speaker: "A", Start: 0, End: 1.1}, {Speaker: "B", Start: 0.9, End: 2}},
			span:    2,
			share:   map[string]float64{"A": 0.5, "B": 0.5},
			overlap: 0.1,
		},
		{
			name:  "touching turns do not overlap",
			turns: []models.SpeakerTurn{{Speaker: "A", Start: 0, End: 1}, {Speaker: "B", Start: 1, End: 4}},
			share: map[string]float64{"A": 0.25, "B": 0.75},
		},
		{
			name:    "span from turn extent",
			turns:   []models.SpeakerTurn{{Speaker: "A", Start: 2, End: 4}, {Speaker: "B", Start: 3, End: 4}},
			share:   map[string]float64{"A": 2.0 / 3, "B": 1.0 / 3},
			overlap: 0.5,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := speakerStats(tc.turns, tc.span)
			if len(st.SpeakingShare) != len(tc.share) {
				t.Fatalf("expected %d speakers, got %v", len(tc.share), st.SpeakingShare)
			}
			for k, want := range tc.share {
				if !approx(st.SpeakingShare[k], want) {
					t.Errorf("share[%s] = %v, want %v", k, st.SpeakingShare[k], want)
				}
			}
			if !approx(st.OverlapRate, tc.overlap) {
				t.Errorf("overlap = %v, want %v", st.OverlapRate, tc.overlap)
			}
		})
	}
}

func TestAlign(t *testing.T) {
	turns := []models.SpeakerTurn{{Speaker: "A", Start: 0, End: 1.1}, {Speaker: "B", Start: 0.9, End: 2}}

	t.Run("no turns", func(t *testing.T) {
		segs := align(nil, models.Transcript{Text: "hello there"}, 3)
		if len(segs) != 1 || segs[0].Speaker != "SPEAKER_00" || segs[0].End != 3 {
			t.Errorf("unexpected %+v", segs)
		}
		if align(nil, models.Transcript{}, 3) != nil {
			t.Error("silence without turns should have no segments")
		}
	})

	t.Run("untimed transcript", func(t *testing.T) {
		segs := align(turns, models.Transcript{Text: "all of it"}, 2)
		if len(segs) != 1 || segs[0].Speaker != "A" || segs[0].Start != 0 || segs[0].End != 2 || segs[0].Text != "all of it" {
			t.Errorf("unexpected %+v", segs)
		}
	})

	t.Run("timed spans by overlap", func(t *testing.T) {
		tr := models.Transcript{Segments: []models.TimedText{
			{Start: 0, End: 1, Text: "hello"},
			{Start: 1, End: 2, Text: "I need"},
			{Start: 5, End: 6, Text: "a refund"},
		}}
		segs := align(turns, tr, 6)
		if segs[0].Text != "hello" || segs[1].Text != "I need a refund" {
			t.Errorf("unexpected %+v", segs)
		}
	})
}

func TestExtractiveSummary(t *testing.T) {
	if got := extractiveSummary("  "); got != "No speech detected." {
		t.Errorf("got %q", got)
	}
	if got := extractiveSummary("short  call\nhere"); got != "short call here" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("word ", 80)
	got := extractiveSummary(long)
	if !strings.HasSuffix(got, "...") || len(strings.Fields(got)) != summaryWords {
		t.Errorf("expected %d words with ellipsis, got %q", summaryWords, got)
	}
}

func TestTextSignal(t *testing.T) {
	tests := []struct {
		s    models.Sentiment
		want float64
	}{
		{models.Sentiment{Label: "POSITIVE", Confidence: 0.9}, 0.9},
		{models.Sentiment{Label: "negative", Confidence: 0.8}, 0.2},
		{models.Sentiment{Label: "neutral", Confidence: 0.99}, 0.5},
		{models.Sentiment{Label: "LABEL_2", Confidence: 1.4}, 1},
	}
	for _, tc := range tests {
		if got := textSignal(tc.s); !approx(got, tc.want) {
			t.Errorf("textSignal(%+v) = %v, want %v", tc.s, got, tc.want)
		}
	}
}

func TestSentimentDistribution(t *testing.T) {
	d := sentimentDistribution(models.Sentiment{Scores: map[string]float64{"POS": 0.7, "neg": 0.1, "neutral": 0.2}})
	if !approx(d[labelPositive], 0.7) || !approx(d[labelNegative], 0.1) || !approx(d[labelNeutral], 0.2) {
		t.Errorf("unexpected %v", d)
	}
	d = sentimentDistribution(models.Sentiment{Label: "negative", Confidence: 0.6})
	if !approx(d[labelNegative], 0.6) || !approx(d[labelPositive], 0.2) {
		t.Errorf("unexpected %v", d)
	}
}
