package dto

import (
	"time"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// InvoiceResponse is the wire form of an invoice record.
type InvoiceResponse struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"ownerId"`
	FileName   string            `json:"fileName"`
	Status     string            `json:"status"`
	Data       model.InvoiceData `json:"data"`
	UploadedAt time.Time         `json:"uploadedAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// InvoiceRequest replaces an invoice record as a whole.
type InvoiceRequest struct {
	FileName string            `json:"fileName"`
	Status   string            `json:"status" binding:"omitempty,oneof=Pending Processed"`
	Data     model.InvoiceData `json:"data"`
}

// UploadResponse is returned by the upload endpoint.
type UploadResponse struct {
	Message string          `json:"message"`
	Data    InvoiceResponse `json:"data"`
}

// ExportResponse summarises a Tally import.
type ExportResponse struct {
	Ledger   string   `json:"ledger"`
	Vouchers int      `json:"vouchers"`
	Messages []string `json:"messages"`
}

// FromInvoice converts a domain invoice.
func FromInvoice(invoice model.Invoice) InvoiceResponse {
	data := invoice.Data
	if data == nil {
		data = model.InvoiceData{}
	}
	return InvoiceResponse{
		ID:         invoice.ID,
		OwnerID:    invoice.OwnerID,
		FileName:   invoice.FileName,
		Status:     string(invoice.Status),
		Data:       data,
		UploadedAt: invoice.UploadedAt,
		UpdatedAt:  invoice.UpdatedAt,
	}
}

// FromInvoices converts a snapshot preserving its order.
func FromInvoices(invoices []model.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		out = append(out, FromInvoice(invoice))
	}
	return out
}

// ToModel is the inverse of FromInvoice.
func (r InvoiceResponse) ToModel() model.Invoice {
	return model.Invoice{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		FileName:   r.FileName,
		Status:     model.InvoiceStatus(r.Status),
		Data:       r.Data.Clone(),
		UploadedAt: r.UploadedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// ToModel builds the replacement record for id.
func (r InvoiceRequest) ToModel(id string) model.Invoice {
	return model.Invoice{
		ID:       id,
		FileName: r.FileName,
		Status:   model.InvoiceStatus(r.Status),
		Data:     r.Data,
	}
}
