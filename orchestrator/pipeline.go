// Package orchestrator runs the call-analysis stages over one audio asset
// and assembles the report.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vijay-svsk/call-summarizer/apperr"
	"github.com/vijay-svsk/call-summarizer/audio"
	cfg "github.com/vijay-svsk/call-summarizer/config"
	"github.com/vijay-svsk/call-summarizer/extract"
	"github.com/vijay-svsk/call-summarizer/models"
	"github.com/vijay-svsk/call-summarizer/report"
	"github.com/vijay-svsk/call-summarizer/signal"
)

// Pipeline is safe for concurrent Runs; each run owns its state.
type Pipeline struct {
	cfg       *cfg.Root
	models    *models.Registry
	extractor StructuredExtractor
	scorer    *signal.Scorer
	assembler *report.Assembler
	log       logrus.FieldLogger
}

type Option func(*Pipeline)

func WithLogger(l logrus.FieldLogger) Option { return func(p *Pipeline) { p.log = l } }

// WithExtractor substitutes the narrative/structured splitter.
func WithExtractor(e StructuredExtractor) Option { return func(p *Pipeline) { p.extractor = e } }

func WithAssembler(a *report.Assembler) Option { return func(p *Pipeline) { p.assembler = a } }

func NewPipeline(c *cfg.Root, reg *models.Registry, opts ...Option) (*Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, err.Error()).WithCause(err)
	}
	scorer, err := signal.NewScorer(c.Scoring.Weights)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:       c,
		models:    reg,
		extractor: extract.New(extract.WithLenientFallback(c.Extraction.Lenient)),
		scorer:    scorer,
		assembler: report.NewAssembler(),
		log:       logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// RunFile analyzes the audio file at path.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*report.Record, error) {
	return p.Run(ctx, audio.OpenAsset(path))
}

// Run executes every stage for one asset. It returns either a complete
// record or an *apperr.Error naming the failing stage, never both. All
// transient resources are released before it returns.
func (p *Pipeline) Run(ctx context.Context, a *audio.Asset) (rec *report.Record, err error) {
	runID := a.ID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "audio": a.Name})

	scope, err := NewScope(p.cfg.Pipeline.WorkDir, shortID(runID))
	if err != nil {
		return nil, apperr.RequiredStage(StageLoad, err)
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			log.WithError(cerr).Warn("releasing run resources")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, apperr.Newf(apperr.KindInternal, "pipeline panic: %v", r)
		}
	}()

	r := &run{p: p, ctx: ctx, log: log, scope: scope, id: runID, src: a}
	start := time.Now()
	rec, err = r.execute()
	if err != nil {
		e := apperr.From(err)
		log.WithFields(logrus.Fields{"stage": e.Stage, "kind": e.Kind, "duration": time.Since(start)}).
			WithError(err).Error("run failed")
		return nil, e
	}
	log.WithFields(logrus.Fields{"duration": time.Since(start), "partial_failures": len(rec.PartialFailures)}).
		Info("run complete")
	return rec, nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// run is the state of one pipeline execution.
type run struct {
	p     *Pipeline
	ctx   context.Context
	log   logrus.FieldLogger
	scope *Scope

	id    string
	src   *audio.Asset
	raw   *audio.Asset // loaded input, owned by the run
	clean *audio.Asset // denoised, or raw when denoise was skipped

	in report.Input

	transcript models.Transcript
	turns      []models.SpeakerTurn
	sentiment  models.Sentiment
	audioFeat  *models.AudioFeatures
	generated  string
}

func (r *run) execute() (*report.Record, error) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{StageLoad, r.load},
		{StageDenoise, r.denoise},
		{StageTranscribe, r.transcribe},
		{StageDiarize, r.diarize},
		{StageSentiment, r.analyzeSentiment},
		{"enrich", r.enrich},
		{StageScore, r.score},
		{StageExtract, r.extract},
	}
	for _, s := range steps {
		if err := r.ctx.Err(); err != nil {
			return nil, r.cancelled(s.name)
		}
		start := time.Now()
		if err := s.fn(); err != nil {
			return nil, err
		}
		r.log.WithFields(logrus.Fields{"stage": s.name, "duration": time.Since(start)}).Debug("stage done")
	}
	rec, err := r.p.assembler.Assemble(r.in)
	if err != nil {
		return nil, r.required(StageAssemble, err)
	}
	return rec, nil
}

// invoke runs fn under the stage timeout. A collaborator that ignores its
// context is abandoned when the deadline passes; a panic becomes an error.
func invoke[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- result{err: fmt.Errorf("collaborator panic: %v", rec)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()
	select {
	case res := <-ch:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func call[T any](r *run, fn func(context.Context) (T, error)) (T, error) {
	return invoke(r.ctx, r.p.cfg.Pipeline.StageTimeout, fn)
}

func (r *run) cancelled(stage string) *apperr.Error {
	return apperr.New(apperr.KindCancelled, "run cancelled").WithStage(stage).WithCause(r.ctx.Err())
}

// required converts a stage error into the run's terminal error.
func (r *run) required(stage string, err error) error {
	if r.ctx.Err() != nil {
		return r.cancelled(stage)
	}
	if e, ok := apperr.As(err); ok {
		switch e.Kind {
		case apperr.KindUnsupportedFormat, apperr.KindInvalidInput, apperr.KindScoreOutOfRange,
			apperr.KindMissingSectionMarker, apperr.KindMalformedStructuredBlock, apperr.KindIncompleteRecord:
			if e.Stage == "" {
				e.Stage = stage
			}
			return e
		}
	}
	return apperr.RequiredStage(stage, err)
}

// optional records a failed enrichment stage and returns the reason to tag
// the affected fields with. Cancellation is not recorded.
func (r *run) optional(stage string, err error) string {
	e := apperr.OptionalStage(stage, err)
	if a, ok := apperr.As(err); ok {
		switch a.Kind {
		case apperr.KindMissingSectionMarker, apperr.KindMalformedStructuredBlock:
			e = a.WithStage(stage)
		default:
			e.Raw = a.Raw
		}
	}
	r.log.WithFields(logrus.Fields{"stage": stage, "kind": e.Kind}).WithError(err).Warn("optional stage failed")
	r.in.PartialFailures = append(r.in.PartialFailures, report.FailureFrom(stage, e))
	return fmt.Sprintf("%s failed: %v", stage, err)
}

func (r *run) load() error {
	formats := r.p.cfg.Audio.Formats
	if ext := filepath.Ext(r.src.Name); ext != "" {
		if _, err := audio.FormatFromName(r.src.Name, formats); err != nil {
			return r.required(StageLoad, err)
		}
	}
	data, err := r.src.Bytes()
	if err != nil {
		return r.required(StageLoad, err)
	}
	info, err := audio.Probe(data, formats)
	if err != nil {
		return r.required(StageLoad, err)
	}
	path, err := r.scope.TempFile("input-*."+string(info.Format), data)
	if err != nil {
		return r.required(StageLoad, err)
	}

	r.raw = &audio.Asset{
		ID:         r.id,
		Name:       r.src.Name,
		Format:     info.Format,
		Path:       path,
		Data:       data,
		SampleRate: info.SampleRate,
		Duration:   info.Duration,
	}
	raw := r.raw
	r.scope.Acquire("buffer:input", func() error { raw.Data = nil; return nil })
	r.clean = r.raw

	r.in.AudioID = r.id
	r.in.AudioName = r.src.Name
	r.in.Duration = info.Duration
	r.log.WithFields(logrus.Fields{
		"stage": StageLoad, "format": info.Format, "sample_rate": info.SampleRate, "duration": info.Duration,
	}).Info("audio loaded")
	return nil
}

// view gives a collaborator its own copy of an asset. The copy keeps the
// payload in memory, so a collaborator abandoned at its deadline can still
// read it after the run has dropped its buffers and removed its temp files.
func (r *run) view(a *audio.Asset) *audio.Asset {
	c := *a
	return &c
}

func (r *run) denoise() error {
	if !r.p.models.Has(models.NameDenoiser) {
		return nil
	}
	in := r.view(r.raw)
	cleaned, err := call(r, func(ctx context.Context) ([]byte, error) {
		d, err := r.p.models.Denoiser(ctx)
		if err != nil {
			return nil, err
		}
		return d.Denoise(ctx, in)
	})
	if err == nil && len(cleaned) == 0 {
		err = fmt.Errorf("denoiser returned no audio")
	}
	if err != nil {
		if r.ctx.Err() != nil {
			return r.cancelled(StageDenoise)
		}
		r.optional(StageDenoise, err)
		return nil
	}
	path, err := r.scope.TempFile("cleaned-*."+string(r.raw.Format), cleaned)
	if err != nil {
		r.optional(StageDenoise, err)
		return nil
	}
	c := *r.raw
	c.Path, c.Data, c.Name = path, cleaned, "cleaned_"+r.raw.Name
	r.clean = &c
	r.scope.Acquire("buffer:cleaned", func() error { c.Data = nil; return nil })
	return nil
}

func (r *run) transcribe() error {
	in := r.view(r.clean)
	tr, err := call(r, func(ctx context.Context) (models.Transcript, error) {
		t, err := r.p.models.Transcriber(ctx)
		if err != nil {
			return models.Transcript{}, err
		}
		return t.Transcribe(ctx, in)
	})
	if err != nil {
		return r.required(StageTranscribe, err)
	}
	tr.Text = strings.TrimSpace(tr.Text)
	r.transcript = tr
	r.in.Transcript = tr.Text
	r.in.NoSpeech = tr.Text == ""
	return nil
}

func (r *run) diarize() error {
	duration := r.raw.Duration.Seconds()
	failed := false
	if r.p.models.Has(models.NameDiarizer) {
		in := r.view(r.clean)
		turns, err := call(r, func(ctx context.Context) ([]models.SpeakerTurn, error) {
			d, err := r.p.models.Diarizer(ctx)
			if err != nil {
				return nil, err
			}
			return d.Diarize(ctx, in)
		})
		switch {
		case err != nil && r.ctx.Err() != nil:
			return r.cancelled(StageDiarize)
		case err != nil:
			failed = true
			r.in.Scores.OverlapRate = report.Failed[float64](r.optional(StageDiarize, err))
		default:
			r.turns = turns
		}
	}

	r.in.Segments = align(r.turns, r.transcript, duration)
	if len(r.turns) == 0 {
		if !failed {
			r.in.Scores.OverlapRate = report.None[float64]("no diarization")
		}
		return nil
	}

	st := speakerStats(r.turns, duration)
	r.in.Scores.OverlapRate = report.Some(signal.Round2(st.OverlapRate))
	if share, err := signal.NormalizeGroup("talk_share", st.SpeakingShare, signal.DefaultTarget); err == nil {
		r.addGroup(share)
	}
	return nil
}

func (r *run) addGroup(g signal.Group) {
	if r.in.Groups == nil {
		r.in.Groups = map[string]signal.Group{}
	}
	r.in.Groups[g.Name] = g
}

func (r *run) analyzeSentiment() error {
	if r.transcript.Text == "" {
		// Silence carries no sentiment.
		r.sentiment = models.Sentiment{Label: labelNeutral, Confidence: 1}
	} else {
		s, err := call(r, func(ctx context.Context) (models.Sentiment, error) {
			c, err := r.p.models.Sentiment(ctx)
			if err != nil {
				return models.Sentiment{}, err
			}
			return c.ClassifySentiment(ctx, r.transcript.Text)
		})
		if err != nil {
			return r.required(StageSentiment, err)
		}
		r.sentiment = s
	}

	g, err := signal.NormalizeGroup(report.PrimaryGroup, sentimentDistribution(r.sentiment), signal.DefaultTarget)
	if err != nil {
		return r.required(StageSentiment, err)
	}
	r.addGroup(g)
	r.in.Scores.TextSentiment = report.Some(textSignal(r.sentiment))
	r.in.RawSignals = append(r.in.RawSignals, signal.Ratio("text_sentiment", textSignal(r.sentiment)))
	return nil
}

// enrich runs the independent optional stages concurrently and joins them.
// Each goroutine writes only its own result slot; the merge runs after Wait.
func (r *run) enrich() error {
	var (
		g      errgroup.Group
		has    = r.p.models.Has
		feat   models.AudioFeatures
		noise  models.NoiseFeatures
		topics models.Topics
		text   string
		errs   = make([]error, 4)
	)
	speech := r.transcript.Text != ""
	raw, clean := r.view(r.raw), r.view(r.clean)
	// Only cancellation travels through the group; other failures are
	// per-stage annotations.
	cancelled := func(stage string, err error) error {
		if err != nil && r.ctx.Err() != nil {
			return r.cancelled(stage)
		}
		return nil
	}

	if has(models.NameAudioSentiment) {
		g.Go(func() error {
			feat, errs[0] = call(r, func(ctx context.Context) (models.AudioFeatures, error) {
				a, err := r.p.models.AudioSentiment(ctx)
				if err != nil {
					return models.AudioFeatures{}, err
				}
				return a.AnalyzeAudio(ctx, clean)
			})
			return cancelled(StageAudioSentiment, errs[0])
		})
	}
	if has(models.NameNoise) {
		g.Go(func() error {
			noise, errs[1] = call(r, func(ctx context.Context) (models.NoiseFeatures, error) {
				n, err := r.p.models.Noise(ctx)
				if err != nil {
					return models.NoiseFeatures{}, err
				}
				return n.EstimateNoise(ctx, raw)
			})
			return cancelled(StageNoise, errs[1])
		})
	}
	if speech && has(models.NameTopics) {
		g.Go(func() error {
			topics, errs[2] = call(r, func(ctx context.Context) (models.Topics, error) {
				t, err := r.p.models.Topics(ctx)
				if err != nil {
					return models.Topics{}, err
				}
				return t.ExtractTopics(ctx, r.transcript.Text)
			})
			return cancelled(StageTopics, errs[2])
		})
	}
	if has(models.NameNarrative) {
		g.Go(func() error {
			text, errs[3] = call(r, func(ctx context.Context) (string, error) {
				n, err := r.p.models.Narrative(ctx)
				if err != nil {
					return "", err
				}
				return n.GenerateNarrative(ctx, raw, r.transcript.Text)
			})
			return cancelled(StageNarrative, errs[3])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if r.ctx.Err() != nil {
		return r.cancelled("enrich")
	}

	switch {
	case errs[0] != nil:
		r.in.Scores.AudioSentiment = report.Failed[float64](r.optional(StageAudioSentiment, errs[0]))
	case has(models.NameAudioSentiment):
		r.audioFeat = &feat
	default:
		r.in.Scores.AudioSentiment = report.None[float64]("audio sentiment not configured")
	}

	switch {
	case errs[1] != nil:
		r.in.Scores.BackgroundNoise = report.Failed[float64](r.optional(StageNoise, errs[1]))
	case has(models.NameNoise):
		r.in.Scores.BackgroundNoise = report.Some(signal.Round2(signal.Percent("background_noise", noise.BackgroundNoise).Scaled()))
		r.in.RawSignals = append(r.in.RawSignals,
			signal.RawSignal{Name: "zcr", Value: noise.ZeroCrossingRate, Unit: signal.UnitRaw},
			signal.RawSignal{Name: "spectral_centroid", Value: noise.SpectralCentroid, Unit: signal.UnitHertz},
			signal.RawSignal{Name: "noise_rms", Value: noise.RMS, Unit: signal.UnitRaw},
		)
	default:
		r.in.Scores.BackgroundNoise = report.None[float64]("noise estimation not configured")
	}

	switch {
	case errs[2] != nil:
		reason := r.optional(StageTopics, errs[2])
		r.in.Lists.Topics = report.Failed[[]string](reason)
		r.in.Lists.Entities = report.Failed[[]models.Entity](reason)
	case !speech:
		r.in.Lists.Topics = report.None[[]string]("no speech")
		r.in.Lists.Entities = report.None[[]models.Entity]("no speech")
	case has(models.NameTopics):
		r.in.Lists.Topics = report.Some(topics.Keywords)
		r.in.Lists.Entities = report.Some(topics.Entities)
	default:
		r.in.Lists.Topics = report.None[[]string]("topic extraction not configured")
		r.in.Lists.Entities = report.None[[]models.Entity]("topic extraction not configured")
	}

	if errs[3] != nil {
		if !r.p.cfg.Extraction.Degraded {
			return r.required(StageNarrative, errs[3])
		}
		r.optional(StageNarrative, errs[3])
	} else {
		r.generated = text
	}
	return nil
}

func (r *run) score() error {
	text, _ := r.in.Scores.TextSentiment.Get()
	if r.audioFeat == nil {
		r.in.Scores.Interaction = report.None[signal.CompositeScore]("audio sentiment unavailable")
		return nil
	}

	pitch := r.p.cfg.Scoring.Pitch.Signal("pitch_median", r.audioFeat.PitchMedianHz)
	bipolar := signal.ToBipolar(pitch.Scaled())
	r.in.RawSignals = append(r.in.RawSignals, pitch,
		signal.RawSignal{Name: "energy_rms", Value: r.audioFeat.RMS, Unit: signal.UnitRaw})
	r.in.Scores.AudioSentiment = report.Some(signal.Round2(bipolar))

	cs, err := r.p.scorer.Score(bipolar, text)
	if err != nil {
		return r.required(StageScore, err)
	}
	r.in.Scores.Interaction = report.Some(cs)
	return nil
}

func (r *run) extract() error {
	fallback := func() {
		r.in.Narrative = extractiveSummary(r.transcript.Text)
		r.in.NarrativeSource = report.SourceExtractive
	}
	if r.generated == "" {
		fallback()
		return nil
	}

	m := r.p.cfg.Extraction.Markers
	res, err := r.p.extractor.Extract(r.generated, m)
	if err != nil {
		if !r.p.cfg.Extraction.Degraded {
			return r.required(StageNarrative, err)
		}
		r.optional(StageExtract, err)
		fallback()
		return nil
	}
	if res.Lenient {
		r.log.WithField("stage", StageExtract).Warn("structured block needed lenient repair")
	}
	applyStructured(&r.in, res.Structured)
	if res.Narrative == "" {
		fallback()
		return nil
	}
	r.in.Narrative = res.Narrative
	r.in.NarrativeSource = report.SourceModel
	return nil
}
