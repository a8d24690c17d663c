package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"already exists", ErrAlreadyExists},
		{"not found", ErrNotFound},
		{"invalid credentials", ErrInvalidCredentials},
		{"forbidden", ErrForbidden},
		{"no file", ErrNoFile},
		{"empty file name", ErrEmptyFileName},
		{"unsupported file", ErrUnsupportedFile},
		{"file too large", ErrFileTooLarge},
		{"invalid data", ErrInvalidInvoiceData},
		{"invalid transition", ErrInvalidStatusTransition},
		{"invalid signature", ErrInvalidSignature},
		{"nothing to export", ErrNothingToExport},
		{"disabled", ErrFeatureDisabled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tc.err)
			if !stdErrors.Is(wrapped, tc.err) {
				t.Fatalf("expected wrapped error to match sentinel: %v", tc.err)
			}
		})
	}
}

func TestUploadMessagesMatchClientContract(t *testing.T) {
	if ErrNoFile.Error() != "no file part" {
		t.Fatalf("unexpected message %q", ErrNoFile.Error())
	}
	if ErrEmptyFileName.Error() != "no selected file" {
		t.Fatalf("unexpected message %q", ErrEmptyFileName.Error())
	}
}
