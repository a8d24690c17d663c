package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

const (
	uploadSuccessMessage = "File processed successfully"
	defaultPingInterval  = 15 * time.Second
)

// InvoiceHandler serves invoice upload, CRUD, live stream and export endpoints.
type InvoiceHandler struct {
	facade       InvoiceFacade
	pingInterval time.Duration
}

// NewInvoiceHandler constructs InvoiceHandler. pingInterval <= 0 selects the default.
func NewInvoiceHandler(facade InvoiceFacade, pingInterval time.Duration) *InvoiceHandler {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &InvoiceHandler{facade: facade, pingInterval: pingInterval}
}

// Upload handles POST /upload-invoice.
func (h *InvoiceHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = nil
		}
		respondError(c, http.StatusBadRequest, "No file part", err)
		return
	}
	if header.Filename == "" {
		respondError(c, http.StatusBadRequest, "No selected file", nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to read upload", err)
		return
	}
	defer file.Close()

	invoice, err := h.facade.UploadInvoice(c.Request.Context(), CurrentUserID(c), usecase.UploadFile{
		Name:    header.Filename,
		Size:    header.Size,
		Content: file,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNoFile):
			respondError(c, http.StatusBadRequest, "No file part", nil)
		case errors.Is(err, domainErrors.ErrEmptyFileName):
			respondError(c, http.StatusBadRequest, "No selected file", nil)
		case errors.Is(err, domainErrors.ErrUnsupportedFile):
			respondError(c, http.StatusUnsupportedMediaType, err.Error(), nil)
		case errors.Is(err, domainErrors.ErrFileTooLarge):
			respondError(c, http.StatusRequestEntityTooLarge, "File too large", nil)
		default:
			respondError(c, http.StatusInternalServerError, "Failed to process file", err)
		}
		return
	}

	c.JSON(http.StatusOK, dto.UploadResponse{Message: uploadSuccessMessage, Data: dto.FromInvoice(*invoice)})
}

// List handles GET /api/invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.facade.Invoices(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list invoices", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInvoices(invoices))
}

// Get handles GET /api/invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.facade.Invoice(c.Request.Context(), CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInvoice(*invoice))
}

// Replace handles PUT /api/invoices/:id.
func (h *InvoiceHandler) Replace(c *gin.Context) {
	var req dto.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid invoice body", err)
		return
	}

	invoice, err := h.facade.ReplaceInvoice(c.Request.Context(), CurrentUserID(c), req.ToModel(c.Param("id")))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidStatusTransition):
			respondError(c, http.StatusConflict, err.Error(), nil)
		case errors.Is(err, domainErrors.ErrInvalidInvoiceData):
			respondError(c, http.StatusUnprocessableEntity, err.Error(), nil)
		default:
			h.respondLookupError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, dto.FromInvoice(*invoice))
}

// Delete handles DELETE /api/invoices/:id.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.facade.DeleteInvoice(c.Request.Context(), CurrentUserID(c), c.Param("id")); err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream handles GET /api/invoices/stream. It sends a "snapshot" event with the
// whole collection, newest first, on connect and after every change, and a
// "ping" event while idle.
func (h *InvoiceHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	updates, err := h.facade.WatchInvoices(ctx, CurrentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to watch invoices", err)
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snapshot, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", dto.FromInvoices(snapshot))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// Export handles POST /api/invoices/:id/export.
func (h *InvoiceHandler) Export(c *gin.Context) {
	result, err := h.facade.ExportInvoice(c.Request.Context(), CurrentUserID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrFeatureDisabled):
			respondError(c, http.StatusNotImplemented, "tally export is not configured", nil)
		case errors.Is(err, domainErrors.ErrNothingToExport):
			respondError(c, http.StatusUnprocessableEntity, err.Error(), nil)
		case errors.Is(err, domainErrors.ErrNotFound):
			respondError(c, http.StatusNotFound, "invoice not found", nil)
		default:
			respondError(c, http.StatusBadGateway, err.Error(), err)
		}
		return
	}
	c.JSON(http.StatusOK, dto.ExportResponse{Ledger: result.Ledger, Vouchers: result.Vouchers, Messages: result.Messages})
}

func (h *InvoiceHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, domainErrors.ErrNotFound) {
		respondError(c, http.StatusNotFound, "invoice not found", nil)
		return
	}
	respondError(c, http.StatusInternalServerError, "invoice store failure", err)
}
