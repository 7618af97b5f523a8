package report

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// Format is a serialization format for records.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", apperr.Newf(apperr.KindInvalidInput, "unknown report format %q", s)
}

// Ext is the file extension for the format.
func (f Format) Ext() string { return string(f) }

// Encode writes r to w.
func Encode(w io.Writer, r *Record, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
}

// Decode reads a record previously written by Encode.
func Decode(rd io.Reader, f Format) (*Record, error) {
	var r Record
	var err error
	if f == FormatYAML {
		err = yaml.NewDecoder(rd).Decode(&r)
	} else {
		err = json.NewDecoder(rd).Decode(&r)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
