package signal

import "math"

// Unit names the scale a raw measurement was produced on.
type Unit string

const (
	UnitHertz   Unit = "hz"
	UnitRatio   Unit = "ratio"   // [0,1]
	UnitPercent Unit = "percent" // [0,100]
	UnitBipolar Unit = "bipolar" // [-1,1]
	UnitRaw     Unit = "raw"
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Clip bounds x to the range. NaN maps to Min.
func (r Range) Clip(x float64) float64 {
	if math.IsNaN(x) {
		return r.Min
	}
	return math.Max(r.Min, math.Min(r.Max, x))
}

// Scale maps x linearly from the range onto [0,1], clipping first.
func (r Range) Scale(x float64) float64 {
	if r.Max <= r.Min {
		return 0
	}
	return (r.Clip(x) - r.Min) / (r.Max - r.Min)
}

// RawSignal is an immutable measurement produced by a collaborator.
type RawSignal struct {
	Name   string  `json:"name" yaml:"name"`
	Value  float64 `json:"value" yaml:"value"`
	Unit   Unit    `json:"unit" yaml:"unit"`
	Domain Range   `json:"domain" yaml:"domain"`
}

// Scaled maps the signal onto [0,1] via its declared domain.
func (s RawSignal) Scaled() float64 {
	return s.Domain.Scale(s.Value)
}

// Percent builds a RawSignal on the [0,100] scale.
func Percent(name string, v float64) RawSignal {
	return RawSignal{Name: name, Value: v, Unit: UnitPercent, Domain: Range{Min: 0, Max: 100}}
}

// Ratio builds a RawSignal on the [0,1] scale.
func Ratio(name string, v float64) RawSignal {
	return RawSignal{Name: name, Value: v, Unit: UnitRatio, Domain: Range{Min: 0, Max: 1}}
}

// PitchBand maps a median pitch in Hz onto [0,1]: pitch at or below
// ReferenceHz is 0, pitch at or above ReferenceHz+SpanHz is 1.
type PitchBand struct {
	ReferenceHz float64 `mapstructure:"reference_hz" yaml:"reference_hz"`
	SpanHz      float64 `mapstructure:"span_hz" yaml:"span_hz"`
}

// DefaultPitchBand is the 100-150 Hz band.
var DefaultPitchBand = PitchBand{ReferenceHz: 100, SpanHz: 50}

// Signal returns the pitch as a RawSignal whose domain is the band.
func (b PitchBand) Signal(name string, hz float64) RawSignal {
	if math.IsNaN(hz) || hz <= 0 {
		hz = b.ReferenceHz
	}
	return RawSignal{
		Name:   name,
		Value:  hz,
		Unit:   UnitHertz,
		Domain: Range{Min: b.ReferenceHz, Max: b.ReferenceHz + b.SpanHz},
	}
}

// ToBipolar maps a [0,1] value onto [-1,1].
func ToBipolar(u float64) float64 { return 2*u - 1 }

// FromBipolar maps a [-1,1] value onto [0,1].
func FromBipolar(x float64) float64 { return (x + 1) / 2 }
