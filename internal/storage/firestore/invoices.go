package firestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

type invoiceDoc struct {
	OwnerID        string         `firestore:"ownerId"`
	FileName       string         `firestore:"fileName"`
	BlobKey        string         `firestore:"blobKey"`
	Status         string         `firestore:"status"`
	Data           map[string]any `firestore:"data"`
	ExtractClaimed bool           `firestore:"extractClaimed"`
	UploadedAt     time.Time      `firestore:"uploadedAt"`
	UpdatedAt      time.Time      `firestore:"updatedAt"`
}

func newInvoiceDoc(invoice model.Invoice) invoiceDoc {
	return invoiceDoc{
		OwnerID:    invoice.OwnerID,
		FileName:   invoice.FileName,
		BlobKey:    invoice.BlobKey,
		Status:     string(invoice.Status),
		Data:       invoice.Data.Native(),
		UploadedAt: invoice.UploadedAt,
		UpdatedAt:  invoice.UpdatedAt,
	}
}

func (d invoiceDoc) model(id string, logger *slog.Logger) model.Invoice {
	return model.Invoice{
		ID:         id,
		OwnerID:    d.OwnerID,
		FileName:   d.FileName,
		BlobKey:    d.BlobKey,
		Status:     model.InvoiceStatus(d.Status),
		Data:       decodeData(id, d.Data, logger),
		UploadedAt: d.UploadedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// decodeData converts stored fields, dropping values written by other clients
// that are neither text, numbers nor line items.
func decodeData(id string, raw map[string]any, logger *slog.Logger) model.InvoiceData {
	out := make(model.InvoiceData, len(raw))
	for key, value := range raw {
		field, err := model.FieldFromNative(value)
		if err != nil {
			logger.Warn("skip invoice field",
				slog.String("invoice", id),
				slog.String("field", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		out[key] = field
	}
	return out
}

func (r *invoiceRepository) decode(snap *firestore.DocumentSnapshot) (model.Invoice, error) {
	var doc invoiceDoc
	if err := snap.DataTo(&doc); err != nil {
		return model.Invoice{}, err
	}
	return doc.model(snap.Ref.ID, r.s.logger), nil
}

func (r *invoiceRepository) decodeAll(snaps []*firestore.DocumentSnapshot) ([]model.Invoice, error) {
	result := make([]model.Invoice, 0, len(snaps))
	for _, snap := range snaps {
		invoice, err := r.decode(snap)
		if err != nil {
			return nil, err
		}
		result = append(result, invoice)
	}
	return result, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := r.s.now().UTC()
	invoice.Data = invoice.Data.Clone()
	invoice.UploadedAt = now
	invoice.UpdatedAt = now

	if _, err := r.s.invoices().Doc(invoice.ID).Create(ctx, newInvoiceDoc(invoice)); err != nil {
		return nil, translateError(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) Get(ctx context.Context, ownerID, id string) (*model.Invoice, error) {
	snap, err := r.s.invoices().Doc(id).Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	invoice, err := r.decode(snap)
	if err != nil {
		return nil, err
	}
	if invoice.OwnerID != ownerID {
		return nil, domainErrors.ErrNotFound
	}
	return &invoice, nil
}

func (r *invoiceRepository) ownerQuery(ownerID string) firestore.Query {
	return r.s.invoices().Where("ownerId", "==", ownerID).OrderBy("uploadedAt", firestore.Desc)
}

func (r *invoiceRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Invoice, error) {
	snaps, err := r.ownerQuery(ownerID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return r.decodeAll(snaps)
}

func (r *invoiceRepository) Replace(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	ref := r.s.invoices().Doc(invoice.ID)
	var out model.Invoice
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := r.decode(snap)
		if err != nil {
			return err
		}
		if current.OwnerID != invoice.OwnerID {
			return domainErrors.ErrNotFound
		}

		out = current
		out.FileName = invoice.FileName
		out.Status = invoice.Status
		out.Data = invoice.Data.Clone()
		out.UpdatedAt = r.s.now().UTC()
		return tx.Update(ref, []firestore.Update{
			{Path: "fileName", Value: out.FileName},
			{Path: "status", Value: string(out.Status)},
			{Path: "data", Value: out.Data.Native()},
			{Path: "updatedAt", Value: out.UpdatedAt},
		})
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &out, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, ownerID, id string) error {
	ref := r.s.invoices().Doc(id)
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		owner, err := snap.DataAt("ownerId")
		if err != nil || owner != ownerID {
			return domainErrors.ErrNotFound
		}
		return tx.Delete(ref)
	})
	return translateError(err)
}

// Watch runs a Firestore snapshot listener on the owner's invoices.
// The first snapshot is read before returning so query errors surface to the caller.
func (r *invoiceRepository) Watch(ctx context.Context, ownerID string) (<-chan []model.Invoice, error) {
	it := r.ownerQuery(ownerID).Snapshots(ctx)
	initial, err := r.nextSnapshot(it)
	if err != nil {
		it.Stop()
		return nil, err
	}

	out := make(chan []model.Invoice, 1)
	go func() {
		defer close(out)
		defer it.Stop()

		snapshot := initial
		for {
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
			next, err := r.nextSnapshot(it)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
					r.s.logger.Error("invoice snapshot listener stopped",
						slog.String("owner", ownerID),
						slog.String("error", err.Error()),
					)
				}
				return
			}
			snapshot = next
		}
	}()
	return out, nil
}

func (r *invoiceRepository) nextSnapshot(it *firestore.QuerySnapshotIterator) ([]model.Invoice, error) {
	qs, err := it.Next()
	if err != nil {
		return nil, err
	}
	snaps, err := qs.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	return r.decodeAll(snaps)
}

func (r *invoiceRepository) ClaimForExtraction(ctx context.Context, limit int) ([]model.Invoice, error) {
	query := r.s.invoices().
		Where("status", "==", string(model.InvoiceStatusPending)).
		Where("extractClaimed", "==", false).
		OrderBy("uploadedAt", firestore.Asc).
		Limit(limit)

	var claimed []model.Invoice
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		claimed = claimed[:0]
		snaps, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			invoice, err := r.decode(snap)
			if err != nil {
				return err
			}
			if err := tx.Update(snap.Ref, []firestore.Update{{Path: "extractClaimed", Value: true}}); err != nil {
				return err
			}
			claimed = append(claimed, invoice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *invoiceRepository) CompleteExtraction(ctx context.Context, id string, data model.InvoiceData) error {
	ref := r.s.invoices().Doc(id)
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := snap.DataAt("status")
		if err != nil || current != string(model.InvoiceStatusPending) {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "data", Value: data.Native()},
			{Path: "status", Value: string(model.InvoiceStatusProcessed)},
			{Path: "extractClaimed", Value: false},
			{Path: "updatedAt", Value: r.s.now().UTC()},
		})
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (r *invoiceRepository) ReleaseExtraction(ctx context.Context, id string) error {
	_, err := r.s.invoices().Doc(id).Update(ctx, []firestore.Update{{Path: "extractClaimed", Value: false}})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}
