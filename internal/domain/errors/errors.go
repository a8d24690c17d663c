package errors

import "errors"

var (
	ErrAlreadyExists           = errors.New("already exists")
	ErrNotFound                = errors.New("not found")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrForbidden               = errors.New("forbidden")
	ErrNoFile                  = errors.New("no file part")
	ErrEmptyFileName           = errors.New("no selected file")
	ErrUnsupportedFile         = errors.New("unsupported file type")
	ErrFileTooLarge            = errors.New("file too large")
	ErrInvalidInvoiceData      = errors.New("invalid invoice data")
	ErrInvalidStatusTransition = errors.New("invalid invoice status transition")
	ErrInvalidSignature        = errors.New("invalid payment signature")
	ErrNothingToExport         = errors.New("invoice has no exportable line items")
	ErrFeatureDisabled         = errors.New("feature is not configured")
)
