package model

import "time"

// InvoiceStatus describes the extraction lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "Pending"
	InvoiceStatusProcessed InvoiceStatus = "Processed"
)

// Valid reports whether the status is one of the known values.
func (s InvoiceStatus) Valid() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusProcessed
}

// CanTransitionTo reports whether a record in status s may be written with next.
// Records never move back from Processed to Pending.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if !next.Valid() {
		return false
	}
	return !(s == InvoiceStatusProcessed && next == InvoiceStatusPending)
}

// Invoice is an uploaded document together with its extracted data.
type Invoice struct {
	ID         string
	OwnerID    string
	FileName   string
	BlobKey    string
	Status     InvoiceStatus
	Data       InvoiceData
	UploadedAt time.Time
	UpdatedAt  time.Time
}

// Clone returns a copy that shares no mutable state with i.
func (i Invoice) Clone() Invoice {
	out := i
	out.Data = i.Data.Clone()
	return out
}
