// Package clients talks to the model services behind the collaborator
// interfaces in package models.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vijay-svsk/call-summarizer/audio"
)

// HTTP is the shared transport for the model services.
type HTTP struct{ c *http.Client }

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}

// StatusError is a non-2xx reply from a model service.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Body)
}

func (h *HTTP) do(req *http.Request, service string) (*http.Response, error) {
	resp, err := h.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Service: service, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func decode(resp *http.Response, service string, out any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", service, err)
	}
	return nil
}

// postJSON sends in as JSON and decodes the reply into out.
func (h *HTTP) postJSON(ctx context.Context, service, url string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.do(req, service)
	if err != nil {
		return err
	}
	return decode(resp, service, out)
}

// postAudio uploads the asset as the multipart field "file".
func (h *HTTP) postAudio(ctx context.Context, service, url string, a *audio.Asset) (*http.Response, error) {
	data, err := a.Bytes()
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", a.Name)
	if err != nil {
		return nil, err
	}
	if _, err = fw.Write(data); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.do(req, service)
}

func (h *HTTP) postAudioJSON(ctx context.Context, service, url string, a *audio.Asset, out any) error {
	resp, err := h.postAudio(ctx, service, url, a)
	if err != nil {
		return err
	}
	return decode(resp, service, out)
}

func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
