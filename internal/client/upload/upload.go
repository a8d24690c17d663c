// Package upload submits a selected local file to the processing endpoint.
package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

const (
	NoFileMessage = "Please select a file to upload."
	FailedMessage = "Failed to upload invoice."
)

var (
	ErrNoFile           = errors.New("no file selected")
	ErrSubmitInProgress = errors.New("upload already in progress")
)

// State of one upload interaction.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateFailed     State = "failed"
	StateDone       State = "done"
)

// File is a reference to a local file; it is opened only on submit.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FromPath references a file on disk.
func FromPath(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FromBytes references in-memory content.
func FromBytes(name string, content []byte) File {
	return File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
	}
}

// Flow is the upload form: a selected file, a state and a message.
type Flow struct {
	uploads client.Uploader
	logger  *slog.Logger

	mu      sync.Mutex
	file    *File
	state   State
	message string
	result  *model.Invoice
}

func New(uploads client.Uploader, logger *slog.Logger) *Flow {
	return &Flow{uploads: uploads, logger: logger, state: StateIdle}
}

// SelectFile stores the reference and clears any previous error.
func (f *Flow) SelectFile(file File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.file = &file
	f.message = ""
	if f.state != StateSubmitting {
		f.state = StateIdle
	}
}

// Submit posts the selected file. Without a file it only sets
// NoFileMessage. On failure the file stays selected so the user can retry.
func (f *Flow) Submit(ctx context.Context) (*model.Invoice, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if f.file == nil || f.file.Open == nil {
		f.state = StateFailed
		f.message = NoFileMessage
		f.mu.Unlock()
		return nil, ErrNoFile
	}
	file := *f.file
	f.state = StateSubmitting
	f.message = ""
	f.result = nil
	f.mu.Unlock()

	invoice, err := f.send(ctx, file)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.message = failureMessage(err)
		f.logger.Warn("invoice upload failed", slog.String("file", file.Name), slog.Any("error", err))
		return nil, err
	}
	f.state = StateDone
	f.file = nil
	f.result = invoice
	return invoice, nil
}

func (f *Flow) send(ctx context.Context, file File) (*model.Invoice, error) {
	content, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer content.Close()
	return f.uploads.UploadInvoice(ctx, file.Name, content)
}

func failureMessage(err error) string {
	var remote *client.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return FailedMessage
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Selected returns the name of the selected file.
func (f *Flow) Selected() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return "", false
	}
	return f.file.Name, true
}

// Result is the record created by the last successful submit.
func (f *Flow) Result() *model.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		return nil
	}
	invoice := f.result.Clone()
	return &invoice
}
