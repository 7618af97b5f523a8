// Package signal rescales heterogeneous measurements onto common scales and
// combines them into composite scores.
package signal

import (
	"math"
	"sort"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// DefaultTarget is the sum every percentage group is normalized to.
const DefaultTarget = 100

// Group is a named set of sibling integer percentages. Values lie in
// [0, Target] and sum exactly to Target.
type Group struct {
	Name   string         `json:"name" yaml:"name"`
	Target int            `json:"target" yaml:"target"`
	Values map[string]int `json:"values" yaml:"values"`
}

// Sum returns the total of the member values.
func (g Group) Sum() int {
	total := 0
	for _, v := range g.Values {
		total += v
	}
	return total
}

// Dominant returns the member with the largest value, ties broken by name.
func (g Group) Dominant() string {
	best, bestV := "", -1
	for _, k := range g.Members() {
		if g.Values[k] > bestV {
			best, bestV = k, g.Values[k]
		}
	}
	return best
}

// Members returns the member names in sorted order.
func (g Group) Members() []string {
	keys := make([]string, 0, len(g.Values))
	for k := range g.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Floats returns the group as a map of float64, the shape NormalizeGroup accepts.
func (g Group) Floats() map[string]float64 {
	out := make(map[string]float64, len(g.Values))
	for k, v := range g.Values {
		out[k] = float64(v)
	}
	return out
}

// NormalizeGroup rescales raw member values so they sum exactly to target.
//
// Negative, NaN and infinite values are clipped to zero. If every value is
// zero the target is spread uniformly. Integer rounding uses largest-remainder
// allocation: members are floored and the residual units go to the largest
// fractional parts, ties going to the dominant raw value and then to name order.
func NormalizeGroup(name string, raw map[string]float64, target int) (Group, error) {
	if len(raw) == 0 {
		return Group{}, apperr.Newf(apperr.KindInvalidInput, "signal group %q has no members", name)
	}
	if target < 0 {
		return Group{}, apperr.Newf(apperr.KindInvalidInput, "signal group %q has negative target %d", name, target)
	}

	type share struct {
		key   string
		raw   float64
		floor int
		frac  float64
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// Summing in key order keeps the result independent of map iteration.
	sort.Strings(keys)
	shares := make([]share, 0, len(raw))
	peak := 0.0
	for _, k := range keys {
		v := raw[k]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		shares = append(shares, share{key: k, raw: v})
		peak = math.Max(peak, v)
	}
	// Values large enough to overflow the total or raw*target are divided by
	// the peak first; ordinary values are left unscaled.
	scale := 1.0
	if peak > math.MaxFloat64/float64(len(shares)*(target+1)) {
		scale = peak
	}
	total := 0.0
	for _, s := range shares {
		total += s.raw / scale
	}

	assigned := 0
	for i := range shares {
		var exact float64
		if total == 0 {
			exact = float64(target) / float64(len(shares))
		} else {
			exact = shares[i].raw / scale * float64(target) / total
		}
		if math.IsNaN(exact) || math.IsInf(exact, 0) || exact < 0 {
			exact = 0
		}
		exact = math.Min(exact, float64(target))
		f := math.Floor(exact)
		shares[i].floor = int(f)
		shares[i].frac = exact - f
		assigned += shares[i].floor
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].frac != shares[j].frac {
			return shares[i].frac > shares[j].frac
		}
		if shares[i].raw != shares[j].raw {
			return shares[i].raw > shares[j].raw
		}
		return shares[i].key < shares[j].key
	})
	for i := 0; assigned < target; i = (i + 1) % len(shares) {
		shares[i].floor++
		assigned++
	}
	// Floating point can push a floor past its true value; take the excess
	// back from the smallest remainders.
	for i := len(shares) - 1; assigned > target; i-- {
		if i < 0 {
			i = len(shares) - 1
		}
		if shares[i].floor > 0 {
			shares[i].floor--
			assigned--
		}
	}

	values := make(map[string]int, len(shares))
	for _, s := range shares {
		values[s.key] = s.floor
	}
	return Group{Name: name, Target: target, Values: values}, nil
}

// Normalize normalizes signals after mapping each onto its unit interval.
func Normalize(name string, signals []RawSignal, target int) (Group, error) {
	raw := make(map[string]float64, len(signals))
	for _, s := range signals {
		raw[s.Name] = s.Scaled()
	}
	return NormalizeGroup(name, raw, target)
}
