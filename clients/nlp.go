package clients

import (
	"context"

	"github.com/vijay-svsk/call-summarizer/audio"
	"github.com/vijay-svsk/call-summarizer/models"
)

// Topics is the keyword and entity service exposing POST /topics.
type Topics struct {
	http *HTTP
	url  string
}

func NewTopics(h *HTTP, url string) *Topics { return &Topics{http: h, url: url} }

func (c *Topics) ExtractTopics(ctx context.Context, text string) (models.Topics, error) {
	var out models.Topics
	if err := c.http.postJSON(ctx, "topics", endpoint(c.url, "/topics"), textReq{Text: text}, &out); err != nil {
		return models.Topics{}, err
	}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	if out.Entities == nil {
		out.Entities = []models.Entity{}
	}
	return out, nil
}

// Noise estimates background noise via POST /noise.
type Noise struct {
	http *HTTP
	url  string
}

func NewNoise(h *HTTP, url string) *Noise { return &Noise{http: h, url: url} }

func (c *Noise) EstimateNoise(ctx context.Context, a *audio.Asset) (models.NoiseFeatures, error) {
	var out models.NoiseFeatures
	err := c.http.postAudioJSON(ctx, "noise", endpoint(c.url, "/noise"), a, &out)
	return out, err
}
