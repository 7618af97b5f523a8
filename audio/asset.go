// Package audio holds the audio asset handled by one pipeline run and the
// probing needed to validate it.
package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// Format is a supported container format.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
)

// DefaultFormats is the upload whitelist.
var DefaultFormats = []string{"wav", "mp3", "flac"}

// MIMEType returns the media type sent to model collaborators.
func (f Format) MIMEType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatFLAC:
		return "audio/flac"
	default:
		return "audio/wav"
	}
}

// Asset is a recorded call. Exactly one of Data or Path is required on
// input; the load stage fills in the rest.
type Asset struct {
	ID         string
	Name       string
	Format     Format
	Path       string
	Data       []byte
	SampleRate int
	Duration   time.Duration
}

// FormatFromName validates the file extension against the whitelist.
func FormatFromName(name string, allowed []string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if len(allowed) == 0 {
		allowed = DefaultFormats
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return Format(ext), nil
		}
	}
	return "", apperr.Newf(apperr.KindUnsupportedFormat,
		"unsupported audio format %q; allowed: %s", ext, strings.Join(allowed, ", ")).
		WithDetail("filename", name)
}

// NewAsset wraps an in-memory payload.
func NewAsset(name string, data []byte) *Asset {
	return &Asset{ID: uuid.NewString(), Name: name, Data: data}
}

// OpenAsset references a file on disk; the payload is read lazily.
func OpenAsset(path string) *Asset {
	return &Asset{ID: uuid.NewString(), Name: filepath.Base(path), Path: path}
}

// Bytes returns the payload, reading it from Path when not in memory.
func (a *Asset) Bytes() ([]byte, error) {
	if a.Data != nil {
		return a.Data, nil
	}
	if a.Path == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "audio asset has neither data nor path")
	}
	return os.ReadFile(a.Path)
}

// Sniff identifies the container from its leading bytes.
func Sniff(head []byte) (Format, bool) {
	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return FormatWAV, true
	case len(head) >= 4 && bytes.Equal(head[0:4], []byte("fLaC")):
		return FormatFLAC, true
	case len(head) >= 3 && bytes.Equal(head[0:3], []byte("ID3")):
		return FormatMP3, true
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3, true
	}
	return "", false
}
