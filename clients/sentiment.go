package clients

import (
	"context"
	"strings"

	"github.com/vijay-svsk/call-summarizer/audio"
	"github.com/vijay-svsk/call-summarizer/models"
)

type textReq struct {
	Text string `json:"text"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type sentimentResp struct {
	Label  string       `json:"label"`
	Score  float64      `json:"score"`
	Scores []labelScore `json:"scores"`
}

// Sentiment is a text classifier exposing POST /sentiment.
type Sentiment struct {
	http *HTTP
	url  string
}

func NewSentiment(h *HTTP, url string) *Sentiment { return &Sentiment{http: h, url: url} }

func (c *Sentiment) ClassifySentiment(ctx context.Context, text string) (models.Sentiment, error) {
	var out sentimentResp
	if err := c.http.postJSON(ctx, "sentiment", endpoint(c.url, "/sentiment"), textReq{Text: text}, &out); err != nil {
		return models.Sentiment{}, err
	}
	s := models.Sentiment{Label: strings.ToLower(out.Label), Confidence: out.Score}
	if len(out.Scores) > 0 {
		s.Scores = make(map[string]float64, len(out.Scores))
		for _, ls := range out.Scores {
			s.Scores[strings.ToLower(ls.Label)] = ls.Score
		}
	}
	return s, nil
}

// AudioSentiment extracts prosodic features via POST /features.
type AudioSentiment struct {
	http *HTTP
	url  string
}

func NewAudioSentiment(h *HTTP, url string) *AudioSentiment {
	return &AudioSentiment{http: h, url: url}
}

func (c *AudioSentiment) AnalyzeAudio(ctx context.Context, a *audio.Asset) (models.AudioFeatures, error) {
	var out models.AudioFeatures
	err := c.http.postAudioJSON(ctx, "audio-sentiment", endpoint(c.url, "/features"), a, &out)
	return out, err
}
