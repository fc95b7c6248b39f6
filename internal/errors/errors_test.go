package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorInterface(t *testing.T) {
	err := NewNotFound("missing-note")
	if err.Error() != "NOT_FOUND: note not found: missing-note" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["slug"] != "missing-note" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewInvalidRequest("bad"), ErrInvalidRequest, true},
		{"different code", NewInvalidRequest("bad"), ErrNotFound, false},
		{"plain error", stderrors.New("plain"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewInternalNilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewUnknownModel(t *testing.T) {
	err := NewUnknownModel("mystery-model")
	if !Is(err, ErrUnknownModel) {
		t.Error("expected UNKNOWN_MODEL code")
	}
	if err.Details["model"] != "mystery-model" {
		t.Errorf("Details = %v", err.Details)
	}
}
