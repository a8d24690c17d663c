package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
	"github.com/polkiloo/invoicedesk/internal/storage/blob"
)

const sniffLen = 512

// allowedUploads maps accepted extensions to the content types sniffing must yield.
var allowedUploads = map[string][]string{
	".pdf":  {"application/pdf"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".bmp":  {"image/bmp"},
	".gif":  {"image/gif"},
	".tif":  {"image/tiff"},
	".tiff": {"image/tiff"},
}

// UploadFile is an incoming invoice document.
type UploadFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// InvoiceUseCase encapsulates invoice record lifecycle logic.
type InvoiceUseCase struct {
	invoices repository.InvoiceRepository
	blobs    blob.Store
	maxBytes int64
	logger   *slog.Logger
}

// NewInvoiceUseCase constructs InvoiceUseCase. maxBytes <= 0 disables the size limit.
func NewInvoiceUseCase(invoices repository.InvoiceRepository, blobs blob.Store, maxBytes int64, logger *slog.Logger) *InvoiceUseCase {
	return &InvoiceUseCase{invoices: invoices, blobs: blobs, maxBytes: maxBytes, logger: logger}
}

// Upload stores the file bytes and creates a Pending record owned by ownerID.
func (u *InvoiceUseCase) Upload(ctx context.Context, ownerID string, file UploadFile) (*model.Invoice, error) {
	name := sanitizeFileName(file.Name)
	if name == "" {
		return nil, domainErrors.ErrEmptyFileName
	}
	allowed, ok := allowedUploads[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedFile, name)
	}
	if file.Content == nil {
		return nil, domainErrors.ErrNoFile
	}
	if u.maxBytes > 0 && file.Size > u.maxBytes {
		return nil, domainErrors.ErrFileTooLarge
	}

	reader := file.Content
	if u.maxBytes > 0 {
		reader = io.LimitReader(file.Content, u.maxBytes+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if u.maxBytes > 0 && int64(len(content)) > u.maxBytes {
		return nil, domainErrors.ErrFileTooLarge
	}

	contentType := DetectContentType(content)
	if !contains(allowed, contentType) {
		return nil, fmt.Errorf("%w: %s looks like %s", domainErrors.ErrUnsupportedFile, name, contentType)
	}

	id := uuid.NewString()
	key := path.Join(ownerID, id, name)
	if err := u.blobs.Put(ctx, key, contentType, bytes.NewReader(content), int64(len(content))); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	invoice, err := u.invoices.Create(ctx, model.Invoice{
		ID:       id,
		OwnerID:  ownerID,
		FileName: name,
		BlobKey:  key,
		Status:   model.InvoiceStatusPending,
		Data:     model.InvoiceData{},
	})
	if err != nil {
		if delErr := u.blobs.Delete(ctx, key); delErr != nil {
			u.logger.Warn("failed to remove orphaned upload", slog.String("key", key), slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	return invoice, nil
}

// List returns the owner's invoices newest first.
func (u *InvoiceUseCase) List(ctx context.Context, ownerID string) ([]model.Invoice, error) {
	return u.invoices.ListByOwner(ctx, ownerID)
}

// Get returns one invoice of the owner.
func (u *InvoiceUseCase) Get(ctx context.Context, ownerID, id string) (*model.Invoice, error) {
	return u.invoices.Get(ctx, ownerID, id)
}

// Watch streams the owner's collection on every change.
func (u *InvoiceUseCase) Watch(ctx context.Context, ownerID string) (<-chan []model.Invoice, error) {
	return u.invoices.Watch(ctx, ownerID)
}

// Replace overwrites the record as a whole. The status may only move forward and
// data must pass validation.
func (u *InvoiceUseCase) Replace(ctx context.Context, ownerID string, invoice model.Invoice) (*model.Invoice, error) {
	current, err := u.invoices.Get(ctx, ownerID, invoice.ID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == "" {
		invoice.Status = current.Status
	}
	if !current.Status.CanTransitionTo(invoice.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidStatusTransition, current.Status, invoice.Status)
	}
	if err := ValidateInvoiceData(invoice.Data); err != nil {
		return nil, err
	}
	if invoice.FileName = sanitizeFileName(invoice.FileName); invoice.FileName == "" {
		invoice.FileName = current.FileName
	}
	if invoice.Data == nil {
		invoice.Data = model.InvoiceData{}
	}
	invoice.OwnerID = ownerID
	return u.invoices.Replace(ctx, invoice)
}

// Delete removes the record, then the stored file on a best-effort basis.
func (u *InvoiceUseCase) Delete(ctx context.Context, ownerID, id string) error {
	current, err := u.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := u.invoices.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	if current.BlobKey != "" {
		if err := u.blobs.Delete(ctx, current.BlobKey); err != nil {
			u.logger.Warn("failed to delete invoice file",
				slog.String("invoice_id", id),
				slog.String("key", current.BlobKey),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// ClaimForExtraction marks up to limit pending invoices as taken by this worker.
func (u *InvoiceUseCase) ClaimForExtraction(ctx context.Context, limit int) ([]model.Invoice, error) {
	return u.invoices.ClaimForExtraction(ctx, limit)
}

// ReadFile loads the stored bytes of an invoice.
func (u *InvoiceUseCase) ReadFile(ctx context.Context, invoice model.Invoice) ([]byte, error) {
	rc, err := u.blobs.Get(ctx, invoice.BlobKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// CompleteExtraction stores extracted data and marks the record Processed.
func (u *InvoiceUseCase) CompleteExtraction(ctx context.Context, id string, data model.InvoiceData) error {
	if err := ValidateInvoiceData(data); err != nil {
		return err
	}
	return u.invoices.CompleteExtraction(ctx, id, data)
}

// ReleaseExtraction hands a claimed invoice back to the queue.
func (u *InvoiceUseCase) ReleaseExtraction(ctx context.Context, id string) error {
	return u.invoices.ReleaseExtraction(ctx, id)
}

// DetectContentType sniffs the upload, recognising TIFF which net/http does not.
func DetectContentType(content []byte) string {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	ct := http.DetectContentType(head)
	if ct == "application/octet-stream" && isTIFF(head) {
		return "image/tiff"
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

func isTIFF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("II*\x00")) || bytes.HasPrefix(b, []byte("MM\x00*"))
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
