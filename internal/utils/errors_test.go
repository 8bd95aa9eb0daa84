package utils

import (
	"errors"
	"io/fs"
	"testing"
)

func TestAppError(t *testing.T) {
	wrapped := NewAppError("runbook.Load", "read document", fs.ErrNotExist)

	if got := wrapped.Error(); got != "runbook.Load: read document: file does not exist" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Error("AppError should unwrap to its cause")
	}

	bare := NewAppError("op", "message", nil)
	if got := bare.Error(); got != "op: message" {
		t.Errorf("Error() = %q", got)
	}
}
