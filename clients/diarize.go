package clients

import (
	"context"
	"sort"

	"github.com/vijay-svsk/call-summarizer/audio"
	"github.com/vijay-svsk/call-summarizer/models"
)

type diarizeResp struct {
	Segments []models.SpeakerTurn `json:"segments"`
}

// Diarization is a speaker-segmentation service exposing POST /diarize.
type Diarization struct {
	http *HTTP
	url  string
}

func NewDiarization(h *HTTP, url string) *Diarization { return &Diarization{http: h, url: url} }

// Diarize returns the turns ordered by start time.
func (c *Diarization) Diarize(ctx context.Context, a *audio.Asset) ([]models.SpeakerTurn, error) {
	var out diarizeResp
	if err := c.http.postAudioJSON(ctx, "diarization", endpoint(c.url, "/diarize"), a, &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out.Segments, func(i, j int) bool { return out.Segments[i].Start < out.Segments[j].Start })
	return out.Segments, nil
}
