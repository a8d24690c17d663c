// Package editor implements the detail view of one invoice and its edit mode.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// SaveFailedMessage is shown when the store rejects a save.
const SaveFailedMessage = "Failed to save invoice."

var (
	ErrSaveInProgress = errors.New("save already in progress")
	ErrNotEditing     = errors.New("edit mode is off")
)

// Row is one (field, value) pair of the rendered data map.
type Row struct {
	Field string
	Value model.FieldValue
}

// Editor holds one record and, in edit mode, a private copy of its data.
// Values are not type checked: a number may be replaced by text.
type Editor struct {
	records client.RecordStore
	logger  *slog.Logger

	mu      sync.Mutex
	invoice model.Invoice
	buffer  model.InvoiceData
	editing bool
	saving  bool
	message string
}

func New(records client.RecordStore, invoice model.Invoice, logger *slog.Logger) *Editor {
	return &Editor{records: records, invoice: invoice.Clone(), logger: logger}
}

// Rows renders the buffer in edit mode and the record otherwise, sorted by field.
func (e *Editor) Rows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	data := e.invoice.Data
	if e.editing {
		data = e.buffer
	}
	rows := make([]Row, 0, len(data))
	for _, key := range data.Keys() {
		rows = append(rows, Row{Field: key, Value: data[key]})
	}
	return rows
}

// Edit turns edit mode on and snapshots the record data into the buffer.
func (e *Editor) Edit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing {
		return
	}
	e.buffer = e.invoice.Data.Clone()
	e.editing = true
	e.message = ""
}

// SetField replaces key in the buffer.
func (e *Editor) SetField(key string, value model.FieldValue) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	e.buffer[key] = value
	return nil
}

// Cancel drops the buffer without writing.
func (e *Editor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saving {
		return ErrSaveInProgress
	}
	e.buffer = nil
	e.editing = false
	e.message = ""
	return nil
}

// Save replaces the whole record with the buffer as data and status
// Processed. A second call while the first is in flight returns
// ErrSaveInProgress without writing. On failure edit mode and the buffer
// are kept.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return ErrSaveInProgress
	}
	if !e.editing {
		e.mu.Unlock()
		return ErrNotEditing
	}
	e.saving = true
	e.message = ""
	record := e.invoice.Clone()
	record.Data = e.buffer.Clone()
	record.Status = model.InvoiceStatusProcessed
	e.mu.Unlock()

	saved, err := e.records.ReplaceInvoice(ctx, record)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if err != nil {
		e.message = SaveFailedMessage
		e.logger.Error("invoice save failed", slog.String("invoice_id", record.ID), slog.Any("error", err))
		return err
	}
	if saved != nil {
		record = saved.Clone()
	}
	e.invoice = record
	e.buffer = nil
	e.editing = false
	return nil
}

// Refresh takes a newer copy of the record from the feed. It is ignored
// while editing or for another record.
func (e *Editor) Refresh(invoice model.Invoice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing || invoice.ID != e.invoice.ID {
		return
	}
	e.invoice = invoice.Clone()
}

// Invoice returns a copy of the record.
func (e *Editor) Invoice() model.Invoice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invoice.Clone()
}

func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Saving reports a save in flight; the save control stays disabled meanwhile.
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Message is the user-facing error of the last save, if any.
func (e *Editor) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}
