package report

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Status tells a consumer whether a field was computed.
type Status string

// StatusFailed is a kind of not computed: the field has no value because
// its stage failed rather than because the stage was skipped. Computed
// reports false for both.
const (
	StatusComputed    Status = "computed"
	StatusNotComputed Status = "not_computed"
	StatusFailed      Status = "failed"
)

// Optional is a field a stage may or may not have produced. A computed zero
// serializes with its value; a field that was never computed has none.
// The zero Optional is not computed.
type Optional[T any] struct {
	status Status
	value  T
	reason string
}

// Some marks v as computed.
func Some[T any](v T) Optional[T] {
	return Optional[T]{status: StatusComputed, value: v}
}

// None marks the field as skipped.
func None[T any](reason string) Optional[T] {
	return Optional[T]{status: StatusNotComputed, reason: reason}
}

// Failed marks the field as not computed because its stage failed.
func Failed[T any](reason string) Optional[T] {
	return Optional[T]{status: StatusFailed, reason: reason}
}

func (o Optional[T]) Status() Status {
	if o.status == "" {
		return StatusNotComputed
	}
	return o.status
}

func (o Optional[T]) Computed() bool { return o.status == StatusComputed }

func (o Optional[T]) Reason() string { return o.reason }

// Get returns the value and whether it was computed.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.Computed()
}

// Or returns the value, or def when not computed.
func (o Optional[T]) Or(def T) T {
	if o.Computed() {
		return o.value
	}
	return def
}

type optionalWire[T any] struct {
	Status Status `json:"status" yaml:"status"`
	Value  *T     `json:"value,omitempty" yaml:"value,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (o Optional[T]) wire() optionalWire[T] {
	w := optionalWire[T]{Status: o.Status(), Reason: o.reason}
	if o.Computed() {
		v := o.value
		w.Value = &v
	}
	return w
}

func (o *Optional[T]) fromWire(w optionalWire[T]) {
	*o = Optional[T]{status: w.Status, reason: w.Reason}
	if w.Value != nil {
		o.value = *w.Value
	}
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.wire())
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	var w optionalWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.fromWire(w)
	return nil
}

func (o Optional[T]) MarshalYAML() (any, error) {
	return o.wire(), nil
}

func (o *Optional[T]) UnmarshalYAML(n *yaml.Node) error {
	var w optionalWire[T]
	if err := n.Decode(&w); err != nil {
		return err
	}
	o.fromWire(w)
	return nil
}
