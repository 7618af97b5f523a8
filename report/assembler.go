package report

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vijay-svsk/call-summarizer/apperr"
	"github.com/vijay-svsk/call-summarizer/signal"
)

// Input is everything the stages produced for one run.
type Input struct {
	AudioID         string
	AudioName       string
	Duration        time.Duration
	Narrative       string
	NarrativeSource string
	Transcript      string
	Segments        []Segment
	// NoSpeech records that the transcriber found silence, which makes an
	// empty segment list acceptable.
	NoSpeech        bool
	Groups          map[string]signal.Group
	Scores          Scores
	Lists           Lists
	Flags           Flags
	Details         Details
	Structured      map[string]any
	RawSignals      []signal.RawSignal
	PartialFailures []StageFailure
}

// Assembler builds records. The zero value is not usable; use NewAssembler.
type Assembler struct {
	primary string
	now     func() time.Time
	newID   func() string
}

type AssemblerOption func(*Assembler)

// WithPrimaryGroup changes the group every record must carry.
func WithPrimaryGroup(name string) AssemblerOption {
	return func(a *Assembler) { a.primary = name }
}

// WithClock sets the creation-time source.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// WithIDs sets the record ID generator.
func WithIDs(newID func() string) AssemblerOption {
	return func(a *Assembler) { a.newID = newID }
}

func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		primary: PrimaryGroup,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble validates in and returns a new Record that shares no memory with
// it. It fails with IncompleteRecord when the narrative, the segments (absent
// an explicit no-speech flag) or the primary sentiment group is missing.
func (a *Assembler) Assemble(in Input) (*Record, error) {
	if strings.TrimSpace(in.Narrative) == "" {
		return nil, incomplete("narrative")
	}
	if len(in.Segments) == 0 && !in.NoSpeech {
		return nil, incomplete("segments")
	}
	if _, ok := in.Groups[a.primary]; !ok {
		return nil, incomplete("groups." + a.primary)
	}
	for name, g := range in.Groups {
		if g.Sum() != g.Target {
			return nil, apperr.Newf(apperr.KindIncompleteRecord,
				"group %q sums to %d, want %d", name, g.Sum(), g.Target).
				WithStage("assemble").
				WithDetail("field", "groups."+name)
		}
	}

	segs := slices.Clone(in.Segments)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	source := in.NarrativeSource
	if source == "" {
		source = SourceModel
	}

	return &Record{
		ID:              a.newID(),
		AudioID:         in.AudioID,
		AudioName:       in.AudioName,
		CreatedAt:       a.now(),
		DurationSeconds: in.Duration.Seconds(),
		Narrative:       strings.TrimSpace(in.Narrative),
		NarrativeSource: source,
		Transcript:      in.Transcript,
		Segments:        segs,
		NoSpeech:        in.NoSpeech,
		Groups:          cloneGroups(in.Groups),
		Scores:          in.Scores,
		Lists:           cloneLists(in.Lists),
		Flags:           in.Flags,
		Details:         in.Details,
		Structured:      cloneAny(in.Structured).(map[string]any),
		RawSignals:      slices.Clone(in.RawSignals),
		PartialFailures: slices.Clone(in.PartialFailures),
	}, nil
}

func incomplete(field string) *apperr.Error {
	return apperr.Newf(apperr.KindIncompleteRecord, "required field %s is absent", field).
		WithStage("assemble").
		WithDetail("field", field)
}

func cloneGroups(in map[string]signal.Group) map[string]signal.Group {
	out := make(map[string]signal.Group, len(in))
	for k, g := range in {
		g.Values = maps.Clone(g.Values)
		out[k] = g
	}
	return out
}

func cloneList[T any](o Optional[[]T]) Optional[[]T] {
	if v, ok := o.Get(); ok {
		return Some(slices.Clone(v))
	}
	return o
}

func cloneLists(l Lists) Lists {
	return Lists{
		Topics:              cloneList(l.Topics),
		Entities:            cloneList(l.Entities),
		KeyTopics:           cloneList(l.KeyTopics),
		PainPoints:          cloneList(l.PainPoints),
		Insights:            cloneList(l.Insights),
		CompetitiveMentions: cloneList(l.CompetitiveMentions),
	}
}

// cloneAny deep-copies decoded JSON values. A nil map stays nil.
func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneAny(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return v
	}
}
