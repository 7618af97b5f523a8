package clients

import (
	"context"
	"fmt"
	"io"

	"github.com/vijay-svsk/call-summarizer/audio"
)

// Denoise is a noise-reduction service exposing POST /denoise. The reply
// body is the cleaned audio.
type Denoise struct {
	http     *HTTP
	url      string
	maxBytes int64
}

func NewDenoise(h *HTTP, url string, maxBytes int64) *Denoise {
	return &Denoise{http: h, url: url, maxBytes: maxBytes}
}

func (c *Denoise) Denoise(ctx context.Context, a *audio.Asset) ([]byte, error) {
	resp, err := c.http.postAudio(ctx, "denoise", endpoint(c.url, "/denoise"), a)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if c.maxBytes > 0 {
		r = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("denoise read: %w", err)
	}
	if c.maxBytes > 0 && int64(len(b)) > c.maxBytes {
		return nil, fmt.Errorf("denoise: reply exceeds %d bytes", c.maxBytes)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("denoise: empty reply")
	}
	return b, nil
}
