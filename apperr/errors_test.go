package apperr

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestKind_Code(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindRequiredStage, "REQUIRED_STAGE_FAILURE"},
		{KindOptionalStage, "OPTIONAL_STAGE_FAILURE"},
		{KindMissingSectionMarker, "MISSING_SECTION_MARKER"},
		{KindMalformedStructuredBlock, "MALFORMED_STRUCTURED_BLOCK"},
		{KindScoreOutOfRange, "SCORE_OUT_OF_RANGE"},
		{KindIncompleteRecord, "INCOMPLETE_RECORD"},
		{KindUnsupportedFormat, "UNSUPPORTED_FORMAT"},
	}
	for _, tc := range tests {
		if got := tc.kind.Code(); got != tc.want {
			t.Errorf("%s.Code() = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestKind_HTTPStatus(t *testing.T) {
	if got := KindUnsupportedFormat.HTTPStatus(); got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}
	if got := KindIncompleteRecord.HTTPStatus(); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
	if got := KindRequiredStage.HTTPStatus(); got != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", got)
	}
}

func TestRequiredStage_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("model crashed")
	err := RequiredStage("transcribe", cause)

	if err.Kind != KindRequiredStage {
		t.Errorf("expected RequiredStageFailure, got %s", err.Kind)
	}
	if err.Stage != "transcribe" {
		t.Errorf("expected stage transcribe, got %q", err.Stage)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "[transcribe]") {
		t.Errorf("expected stage in message, got %q", err.Error())
	}
}

func TestAsAndIs(t *testing.T) {
	inner := New(KindMalformedStructuredBlock, "bad json").WithRaw("{oops")
	wrapped := fmt.Errorf("narrative: %w", inner)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to find the error")
	}
	if got.Raw != "{oops" {
		t.Errorf("expected raw payload, got %q", got.Raw)
	}
	if !Is(wrapped, KindMalformedStructuredBlock) {
		t.Error("expected Is to match kind")
	}
	if Is(wrapped, KindMissingSectionMarker) {
		t.Error("expected Is to reject a different kind")
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Error("expected nil for nil error")
	}
	if got := From(context.Canceled); got.Kind != KindCancelled {
		t.Errorf("expected Cancelled, got %s", got.Kind)
	}
	if got := From(fmt.Errorf("boom")); got.Kind != KindInternal {
		t.Errorf("expected Internal, got %s", got.Kind)
	}
	orig := New(KindIncompleteRecord, "missing narrative")
	if got := From(orig); got != orig {
		t.Error("expected taxonomy errors to pass through unchanged")
	}
}

func TestToResponse(t *testing.T) {
	err := New(KindMissingSectionMarker, "no [JSON] marker").
		WithStage("narrative").
		WithRaw("plain text").
		WithDetail("marker", "[JSON]")

	resp := err.ToResponse()
	if resp.Error.Code != "MISSING_SECTION_MARKER" {
		t.Errorf("unexpected code %q", resp.Error.Code)
	}
	if resp.Error.Stage != "narrative" || resp.Error.Raw != "plain text" {
		t.Errorf("unexpected body %+v", resp.Error)
	}
	if resp.Error.Details["marker"] != "[JSON]" {
		t.Errorf("expected marker detail, got %v", resp.Error.Details)
	}
}
