// Package apperr defines the error taxonomy shared by every stage of the
// call-analysis pipeline and by the upload boundary.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// KindRequiredStage aborts a run: no record is produced.
	KindRequiredStage Kind = "RequiredStageFailure"
	// KindOptionalStage is recorded on the record; the run continues.
	KindOptionalStage Kind = "OptionalStageFailure"
	// KindMissingSectionMarker means the model output lacks the structured marker.
	KindMissingSectionMarker Kind = "MissingSectionMarker"
	// KindMalformedStructuredBlock means the structured block could not be parsed.
	KindMalformedStructuredBlock Kind = "MalformedStructuredBlock"
	// KindScoreOutOfRange is a contract violation between signal producers and the scorer.
	KindScoreOutOfRange Kind = "ScoreOutOfRange"
	// KindIncompleteRecord means a required report field is absent at assembly.
	KindIncompleteRecord Kind = "IncompleteRecord"

	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindInvalidInput      Kind = "InvalidInput"
	KindNotFound          Kind = "NotFound"
	KindCancelled         Kind = "Cancelled"
	KindInternal          Kind = "Internal"
)

// Code returns the stable machine-readable code for the kind,
// e.g. RequiredStageFailure -> REQUIRED_STAGE_FAILURE.
func (k Kind) Code() string {
	var b strings.Builder
	for i, r := range string(k) {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// HTTPStatus is the recommended status code for the upload boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnsupportedFormat, KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRequiredStage, KindMissingSectionMarker, KindMalformedStructuredBlock:
		return http.StatusBadGateway
	case KindCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Error is the unified pipeline error.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	// Raw holds the offending payload, e.g. the model text that failed to parse.
	Raw     string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Code())
	if e.Stage != "" {
		b.WriteString(" [")
		b.WriteString(e.Stage)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// WithStage tags the error with the stage it came from and returns the receiver.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithRaw attaches the raw offending payload and returns the receiver.
func (e *Error) WithRaw(raw string) *Error {
	e.Raw = raw
	return e
}

// WithCause sets the underlying cause and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// RequiredStage wraps a collaborator failure in a fatal stage error.
func RequiredStage(stage string, cause error) *Error {
	return &Error{
		Kind:    KindRequiredStage,
		Stage:   stage,
		Message: fmt.Sprintf("required stage %q failed", stage),
		Cause:   cause,
	}
}

// OptionalStage wraps a collaborator failure in a recoverable stage error.
func OptionalStage(stage string, cause error) *Error {
	return &Error{
		Kind:    KindOptionalStage,
		Stage:   stage,
		Message: fmt.Sprintf("optional stage %q failed", stage),
		Cause:   cause,
	}
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// From converts any error into the taxonomy. Context cancellation maps to
// KindCancelled; anything unrecognized becomes KindInternal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Message: "operation cancelled", Cause: err}
	}
	return &Error{Kind: KindInternal, Message: "internal error", Cause: err}
}
