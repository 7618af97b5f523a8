package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vijay-svsk/call-summarizer/audio"
	"github.com/vijay-svsk/call-summarizer/models"
)

// DefaultWhisperModel is used when no model is configured.
const DefaultWhisperModel = "whisper-1"

// verboseTranscription is the part of the verbose_json reply not modeled
// by the SDK type.
type verboseTranscription struct {
	Language string             `json:"language"`
	Segments []models.TimedText `json:"segments"`
}

// Whisper transcribes through the OpenAI audio API or any server that
// speaks it.
type Whisper struct {
	client *openai.Client
	model  string
}

func NewWhisper(apiKey, baseURL, model string) (*Whisper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisper: missing api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultWhisperModel
	}
	client := openai.NewClient(opts...)
	return &Whisper{client: &client, model: model}, nil
}

func (w *Whisper) Transcribe(ctx context.Context, a *audio.Asset) (models.Transcript, error) {
	data, err := a.Bytes()
	if err != nil {
		return models.Transcript{}, err
	}
	tr, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(data), a.Name, a.Format.MIMEType()),
		Model:          openai.AudioModel(w.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return models.Transcript{}, fmt.Errorf("whisper: %w", err)
	}

	out := models.Transcript{Text: strings.TrimSpace(tr.Text)}
	var v verboseTranscription
	if raw := tr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &v) == nil {
		out.Language = v.Language
		out.Segments = v.Segments
	}
	return out, nil
}
