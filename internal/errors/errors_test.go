package errors

import (
	"fmt"
	"testing"
)

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"direct", InvalidSession("gone"), ErrCodeInvalidSession, true},
		{"wrapped by fmt", fmt.Errorf("start: %w", UnsupportedFormat("a.txt")), ErrCodeUnsupportedFormat, true},
		{"cause chain", NewInternalError("X", "outer", ProviderUnavailable("gemini", nil)), ErrCodeProviderUnavailable, true},
		{"other code", ExtractionFailed("empty", nil), ErrCodeInvalidSession, false},
		{"plain error", fmt.Errorf("boom"), ErrCodeInvalidSession, false},
		{"nil", nil, ErrCodeInvalidSession, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := ExtractionFailed("could not read PDF", fmt.Errorf("bad xref"))
	want := "EXTRACTION_FAILED: could not read PDF (caused by: bad xref)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Type != ErrorTypeIO {
		t.Errorf("Type = %s, want %s", err.Type, ErrorTypeIO)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("debug"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
