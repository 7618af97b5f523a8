package models

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// Well-known collaborator names.
const (
	NameTranscriber    = "transcriber"
	NameDiarizer       = "diarizer"
	NameDenoiser       = "denoiser"
	NameSentiment      = "sentiment"
	NameAudioSentiment = "audio-sentiment"
	NameNoise          = "noise"
	NameTopics         = "topics"
	NameNarrative      = "narrative"
)

// Factory builds a model handle. It runs at most once successfully.
type Factory func(ctx context.Context) (any, error)

type entry struct {
	name    string
	factory Factory

	mu     sync.RWMutex
	ready  bool
	handle any
}

// load performs double-checked lazy initialization. A failed factory is
// retried on the next call.
func (e *entry) load(ctx context.Context, log logrus.FieldLogger) (any, error) {
	e.mu.RLock()
	if e.ready {
		h := e.handle
		e.mu.RUnlock()
		return h, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return e.handle, nil
	}

	start := time.Now()
	h, err := e.factory(ctx)
	if err != nil {
		log.WithField("model", e.name).WithError(err).Warn("model load failed")
		return nil, err
	}
	e.handle, e.ready = h, true
	log.WithFields(logrus.Fields{"model": e.name, "duration": time.Since(start)}).Info("model loaded")
	return h, nil
}

// Registry is the process-wide cache of model handles. It is safe for
// concurrent use and is injected into the pipeline at construction.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     logrus.FieldLogger
}

// NewRegistry returns an empty registry.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{entries: make(map[string]*entry), log: log}
}

// Register adds a lazily constructed handle, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{name: name, factory: f}
}

// Provide registers an already constructed handle.
func (r *Registry) Provide(name string, handle any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{name: name, ready: true, handle: handle}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names lists registered handles in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the handle for name, constructing it on first use.
func (r *Registry) Get(ctx context.Context, name string) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "model %q is not registered", name)
	}
	return e.load(ctx, r.log)
}

// Lookup returns the handle for name as a T.
func Lookup[T any](ctx context.Context, r *Registry, name string) (T, error) {
	var zero T
	h, err := r.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	t, ok := h.(T)
	if !ok {
		return zero, apperr.Newf(apperr.KindInternal, "model %q has type %T", name, h)
	}
	return t, nil
}

// Preload constructs the named handles, or all of them when none are named.
func (r *Registry) Preload(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = r.Names()
	}
	var errs []error
	for _, n := range names {
		if _, err := r.Get(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every constructed handle that implements io.Closer. Handles
// are rebuilt on the next Get.
func (r *Registry) Close() error {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		e.mu.Lock()
		if c, ok := e.handle.(io.Closer); ok && e.ready {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if e.factory != nil {
			e.ready, e.handle = false, nil
		}
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (r *Registry) Transcriber(ctx context.Context) (Transcriber, error) {
	return Lookup[Transcriber](ctx, r, NameTranscriber)
}

func (r *Registry) Diarizer(ctx context.Context) (Diarizer, error) {
	return Lookup[Diarizer](ctx, r, NameDiarizer)
}

func (r *Registry) Denoiser(ctx context.Context) (Denoiser, error) {
	return Lookup[Denoiser](ctx, r, NameDenoiser)
}

func (r *Registry) Sentiment(ctx context.Context) (SentimentClassifier, error) {
	return Lookup[SentimentClassifier](ctx, r, NameSentiment)
}

func (r *Registry) AudioSentiment(ctx context.Context) (AudioSentimentAnalyzer, error) {
	return Lookup[AudioSentimentAnalyzer](ctx, r, NameAudioSentiment)
}

func (r *Registry) Noise(ctx context.Context) (NoiseEstimator, error) {
	return Lookup[NoiseEstimator](ctx, r, NameNoise)
}

func (r *Registry) Topics(ctx context.Context) (TopicExtractor, error) {
	return Lookup[TopicExtractor](ctx, r, NameTopics)
}

func (r *Registry) Narrative(ctx context.Context) (NarrativeGenerator, error) {
	return Lookup[NarrativeGenerator](ctx, r, NameNarrative)
}
