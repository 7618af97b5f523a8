package orchestrator

import (
	"math"
	"sort"
	"strings"

	"github.com/vijay-svsk/call-summarizer/models"
	"github.com/vijay-svsk/call-summarizer/report"
)

const summaryWords = 50

// speakerStats computes each speaker's share of total speaking time and the
// fraction of the call span during which more than one speaker is active.
// span <= 0 means the extent of the turns.
func speakerStats(turns []models.SpeakerTurn, span float64) Stats {
	st := Stats{SpeakingShare: map[string]float64{}}
	if len(turns) == 0 {
		return st
	}
	type edge struct {
		t     float64
		delta int
	}
	var (
		edges      []edge
		total      float64
		first, end = math.Inf(1), math.Inf(-1)
	)
	for _, u := range turns {
		d := math.Max(0, u.End-u.Start)
		total += d
		st.SpeakingShare[u.Speaker] += d
		edges = append(edges, edge{t: u.Start, delta: +1}, edge{t: u.End, delta: -1})
		first, end = math.Min(first, u.Start), math.Max(end, u.End)
	}
	// Ends sort before starts at the same instant so touching turns do not overlap.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].t != edges[j].t {
			return edges[i].t < edges[j].t
		}
		return edges[i].delta < edges[j].delta
	})
	active := 0
	last := edges[0].t
	overlap := 0.0
	for _, e := range edges {
		if active > 1 {
			overlap += e.t - last
		}
		active += e.delta
		last = e.t
	}
	if total > 0 {
		for k := range st.SpeakingShare {
			st.SpeakingShare[k] /= total
		}
	}
	if span <= 0 {
		span = end - first
	}
	if span > 0 {
		st.OverlapRate = math.Min(1, overlap/span)
	}
	return st
}

// align attaches transcript text to diarized turns. Each timed span goes to
// the turn it overlaps most, or the nearest turn when it overlaps none.
// Without timed spans the whole transcript becomes one segment labelled with
// the first speaker.
func align(turns []models.SpeakerTurn, tr models.Transcript, duration float64) []report.Segment {
	text := strings.TrimSpace(tr.Text)
	if len(turns) == 0 {
		if text == "" {
			return nil
		}
		end := duration
		if n := len(tr.Segments); n > 0 {
			end = math.Max(end, tr.Segments[n-1].End)
		}
		return []report.Segment{{Speaker: "SPEAKER_00", Start: 0, End: end, Text: text}}
	}

	if len(tr.Segments) == 0 {
		start, end := turns[0].Start, turns[0].End
		for _, t := range turns {
			start, end = math.Min(start, t.Start), math.Max(end, t.End)
		}
		return []report.Segment{{Speaker: turns[0].Speaker, Start: start, End: end, Text: text}}
	}

	texts := make([][]string, len(turns))
	for _, s := range tr.Segments {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		best, bestOv := -1, 0.0
		for i, u := range turns {
			if ov := math.Min(s.End, u.End) - math.Max(s.Start, u.Start); ov > bestOv {
				best, bestOv = i, ov
			}
		}
		if best < 0 {
			best = nearest(turns, (s.Start+s.End)/2)
		}
		texts[best] = append(texts[best], t)
	}

	out := make([]report.Segment, len(turns))
	for i, u := range turns {
		out[i] = report.Segment{Speaker: u.Speaker, Start: u.Start, End: u.End, Text: strings.Join(texts[i], " ")}
	}
	return out
}

func nearest(turns []models.SpeakerTurn, at float64) int {
	best, bestD := 0, math.Inf(1)
	for i, u := range turns {
		d := math.Min(math.Abs(u.Start-at), math.Abs(u.End-at))
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// extractiveSummary is the first summaryWords words of the transcript.
func extractiveSummary(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "No speech detected."
	}
	if len(words) <= summaryWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:summaryWords], " ") + "..."
}

// Canonical sentiment labels.
const (
	labelPositive = "positive"
	labelNeutral  = "neutral"
	labelNegative = "negative"
)

func canonicalLabel(l string) string {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "positive", "pos", "label_2", "5 stars", "4 stars":
		return labelPositive
	case "negative", "neg", "label_0", "1 star", "2 stars":
		return labelNegative
	default:
		return labelNeutral
	}
}

// sentimentDistribution is the classifier's per-label distribution, or one
// built from the top label when the classifier only reports that.
func sentimentDistribution(s models.Sentiment) map[string]float64 {
	dist := map[string]float64{labelPositive: 0, labelNeutral: 0, labelNegative: 0}
	if len(s.Scores) > 0 {
		for k, v := range s.Scores {
			dist[canonicalLabel(k)] += v
		}
		return dist
	}
	conf := math.Max(0, math.Min(1, s.Confidence))
	top := canonicalLabel(s.Label)
	for k := range dist {
		if k == top {
			dist[k] = conf
		} else {
			dist[k] = (1 - conf) / 2
		}
	}
	return dist
}

// textSignal places the classification on [0,1] with 1 most positive.
func textSignal(s models.Sentiment) float64 {
	conf := math.Max(0, math.Min(1, s.Confidence))
	switch canonicalLabel(s.Label) {
	case labelPositive:
		return conf
	case labelNegative:
		return 1 - conf
	default:
		return 0.5
	}
}
