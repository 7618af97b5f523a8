package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vijay-svsk/call-summarizer/clients"
	cfg "github.com/vijay-svsk/call-summarizer/config"
	"github.com/vijay-svsk/call-summarizer/models"
	"github.com/vijay-svsk/call-summarizer/orchestrator"
	"github.com/vijay-svsk/call-summarizer/store"
)

// buildRegistry registers a lazy factory for every configured collaborator.
// Unconfigured optional collaborators are simply absent.
func buildRegistry(c *cfg.Root, log logrus.FieldLogger) *models.Registry {
	reg := models.NewRegistry(log)
	h := clients.NewHTTP(c.Services.Timeout)

	httpService := func(name, url string, build func(url string) any) {
		if strings.TrimSpace(url) == "" {
			return
		}
		reg.Register(name, func(context.Context) (any, error) { return build(url), nil })
	}

	if c.Whisper.Enabled {
		reg.Register(models.NameTranscriber, func(context.Context) (any, error) {
			return clients.NewWhisper(c.Whisper.APIKey, c.Whisper.BaseURL, c.Whisper.Model)
		})
	} else {
		httpService(models.NameTranscriber, c.Services.ASR.URL, func(u string) any { return clients.NewASR(h, u) })
	}
	httpService(models.NameDiarizer, c.Services.Diarization.URL, func(u string) any { return clients.NewDiarization(h, u) })
	httpService(models.NameDenoiser, c.Services.Denoise.URL, func(u string) any {
		return clients.NewDenoise(h, u, c.Audio.MaxUploadBytes())
	})
	httpService(models.NameSentiment, c.Services.Sentiment.URL, func(u string) any { return clients.NewSentiment(h, u) })
	httpService(models.NameAudioSentiment, c.Services.AudioSentiment.URL, func(u string) any { return clients.NewAudioSentiment(h, u) })
	httpService(models.NameTopics, c.Services.Topics.URL, func(u string) any { return clients.NewTopics(h, u) })
	httpService(models.NameNoise, c.Services.Noise.URL, func(u string) any { return clients.NewNoise(h, u) })

	if c.LLM.Enabled {
		reg.Register(models.NameNarrative, func(ctx context.Context) (any, error) {
			if p := strings.ToLower(c.LLM.Provider); p != "" && p != "gemini" {
				return nil, fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
			}
			return clients.NewGemini(ctx, c.LLM.APIKey, c.LLM.Model, c.Extraction.Title, c.Extraction.Structured)
		})
	}

	log.WithField("collaborators", reg.Names()).Debug("registry built")
	return reg
}

func (a *app) pipeline() (*orchestrator.Pipeline, *models.Registry, error) {
	reg := buildRegistry(a.conf, a.log)
	p, err := orchestrator.NewPipeline(a.conf, reg, orchestrator.WithLogger(a.log))
	if err != nil {
		return nil, nil, err
	}
	return p, reg, nil
}

// openStore returns nil when the database is disabled.
func (a *app) openStore() (*store.DB, error) {
	if !a.conf.Database.Enabled {
		return nil, nil
	}
	opts := []store.Option{store.WithLogger(a.log)}
	if a.conf.Encryption.EncryptTranscripts {
		c, err := store.NewCipher(a.conf.Encryption.Key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithCipher(c))
	}
	return store.Open(a.conf.Database.Path, opts...)
}
