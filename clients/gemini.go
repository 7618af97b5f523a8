package clients

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vijay-svsk/call-summarizer/audio"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-pro"

const narrativePrompt = `Listen to this recorded call and return two sections.

First a section titled %[1]s with a detailed prose analysis of the conversation.
Then a section titled %[2]s with one JSON object describing the call.

Rules for the JSON object:
- Valid JSON only: double quotes, no trailing commas, no // comments.
- Every numeric value except durations is a percentage between 0 and 100.
- Within each mood, sentiment and persuasion breakdown the values sum to 100.

Shape:
%[1]s
Full conversation analysis...

%[2]s
{
  "theme": "main theme",
  "number_of_speakers": integer,
  "key_topics": ["topic"],
  "mood_analysis": {
    "agent": {"happy": integer, "sad": integer, "angry": integer, "neutral": integer},
    "customer": {"happy": integer, "sad": integer, "angry": integer, "neutral": integer}
  },
  "sentiment_analysis": {
    "agent": {"positive": integer, "neutral": integer, "negative": integer},
    "customer": {"positive": integer, "neutral": integer, "negative": integer}
  },
  "persuasion_analysis": {"agent": integer, "customer": integer},
  "rate_of_interest": {"agent": integer, "customer": integer},
  "background_noise": integer,
  "issue_escalation": boolean,
  "engagement_level": integer,
  "response_effectiveness": integer,
  "actionable_insights": ["insight"],
  "sales_conversion_probability": integer,
  "competitive_mentions": ["competitor"],
  "pain_points": ["pain point"],
  "call_duration": integer,
  "resolution_time": integer,
  "follow_up_required": boolean,
  "follow_up_summary": "summary text",
  "churn_prediction": integer
}`

// Gemini produces the narrative and structured analysis from the raw audio.
type Gemini struct {
	client *genai.Client
	model  string
	prompt string
}

// NewGemini connects to the Gemini API. title and marker are the section
// labels the extractor later splits on.
func NewGemini(ctx context.Context, apiKey, model, title, marker string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model, prompt: fmt.Sprintf(narrativePrompt, title, marker)}, nil
}

func (g *Gemini) GenerateNarrative(ctx context.Context, a *audio.Asset, transcript string) (string, error) {
	data, err := a.Bytes()
	if err != nil {
		return "", err
	}
	parts := []*genai.Part{genai.NewPartFromText(g.prompt)}
	if transcript != "" {
		parts = append(parts, genai.NewPartFromText("Reference transcript:\n"+transcript))
	}
	parts = append(parts, genai.NewPartFromBytes(data, a.Format.MIMEType()))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Role: "user", Parts: parts},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return sb.String(), nil
}
