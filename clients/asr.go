package clients

import (
	"context"
	"strings"

	"github.com/vijay-svsk/call-summarizer/audio"
	"github.com/vijay-svsk/call-summarizer/models"
)

type asrResp struct {
	Text     string             `json:"text"`
	Segments []models.TimedText `json:"segments"`
	Language string             `json:"language"`
}

// ASR is a speech-to-text service exposing POST /transcribe.
type ASR struct {
	http *HTTP
	url  string
}

func NewASR(h *HTTP, url string) *ASR { return &ASR{http: h, url: url} }

func (c *ASR) Transcribe(ctx context.Context, a *audio.Asset) (models.Transcript, error) {
	var out asrResp
	if err := c.http.postAudioJSON(ctx, "asr", endpoint(c.url, "/transcribe"), a, &out); err != nil {
		return models.Transcript{}, err
	}
	text := strings.TrimSpace(out.Text)
	if text == "" && len(out.Segments) > 0 {
		parts := make([]string, 0, len(out.Segments))
		for _, s := range out.Segments {
			if t := strings.TrimSpace(s.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text = strings.Join(parts, " ")
	}
	return models.Transcript{Text: text, Language: out.Language, Segments: out.Segments}, nil
}
