package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/storage/live"
)

const invoiceColumns = `id, owner_id, file_name, blob_key, status, data, uploaded_at, updated_at`

func (r *invoiceRepository) Create(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	const query = `INSERT INTO invoices (id, owner_id, file_name, blob_key, status, data)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   RETURNING uploaded_at, updated_at`
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	invoice.Data = invoice.Data.Clone()
	raw, err := json.Marshal(invoice.Data)
	if err != nil {
		return nil, fmt.Errorf("encode invoice data: %w", err)
	}
	err = r.storage.pool.QueryRow(ctx, query, invoice.ID, invoice.OwnerID, invoice.FileName, invoice.BlobKey, invoice.Status, raw).
		Scan(&invoice.UploadedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) Get(ctx context.Context, ownerID, id string) (*model.Invoice, error) {
	const query = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id=$1 AND owner_id=$2`
	invoice, err := scanInvoice(r.storage.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, translateError(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Invoice, error) {
	const query = `SELECT ` + invoiceColumns + ` FROM invoices WHERE owner_id=$1 ORDER BY uploaded_at DESC, id DESC`
	rows, err := r.storage.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *invoiceRepository) Replace(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	const query = `UPDATE invoices SET file_name=$3, status=$4, data=$5, updated_at=NOW()
                   WHERE id=$1 AND owner_id=$2
                   RETURNING blob_key, uploaded_at, updated_at`
	invoice.Data = invoice.Data.Clone()
	raw, err := json.Marshal(invoice.Data)
	if err != nil {
		return nil, fmt.Errorf("encode invoice data: %w", err)
	}
	err = r.storage.pool.QueryRow(ctx, query, invoice.ID, invoice.OwnerID, invoice.FileName, invoice.Status, raw).
		Scan(&invoice.BlobKey, &invoice.UploadedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM invoices WHERE id=$1 AND owner_id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *invoiceRepository) Watch(ctx context.Context, ownerID string) (<-chan []model.Invoice, error) {
	changes, unsubscribe := r.storage.hub.Subscribe(ownerID)
	r.storage.ensureListener()

	initial, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	load := func(ctx context.Context) ([]model.Invoice, error) { return r.ListByOwner(ctx, ownerID) }
	return live.Stream(ctx, initial, changes, unsubscribe, load, r.storage.logger), nil
}

// ClaimForExtraction marks up to limit pending invoices as taken by an extraction worker.
func (r *invoiceRepository) ClaimForExtraction(ctx context.Context, limit int) ([]model.Invoice, error) {
	const selectQuery = `SELECT ` + invoiceColumns + `
                         FROM invoices
                         WHERE status = 'Pending' AND NOT extract_claimed
                         ORDER BY uploaded_at
                         LIMIT $1
                         FOR UPDATE SKIP LOCKED`
	const claimQuery = `UPDATE invoices SET extract_claimed=TRUE WHERE id = ANY($1)`

	var invoices []model.Invoice
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, limit)
		if err != nil {
			return err
		}
		for rows.Next() {
			invoice, err := scanInvoice(rows)
			if err != nil {
				rows.Close()
				return err
			}
			invoices = append(invoices, invoice)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(invoices) == 0 {
			return nil
		}

		ids := make([]string, 0, len(invoices))
		for _, invoice := range invoices {
			ids = append(ids, invoice.ID)
		}
		_, err = tx.Exec(ctx, claimQuery, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// CompleteExtraction stores extracted data unless the record was processed meanwhile.
func (r *invoiceRepository) CompleteExtraction(ctx context.Context, id string, data model.InvoiceData) error {
	const query = `UPDATE invoices SET data=$2, status=$3, extract_claimed=FALSE, updated_at=NOW()
                   WHERE id=$1 AND status = 'Pending'`
	raw, err := json.Marshal(data.Clone())
	if err != nil {
		return fmt.Errorf("encode invoice data: %w", err)
	}
	_, err = r.storage.pool.Exec(ctx, query, id, raw, model.InvoiceStatusProcessed)
	return err
}

func (r *invoiceRepository) ReleaseExtraction(ctx context.Context, id string) error {
	const query = `UPDATE invoices SET extract_claimed=FALSE WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, id)
	return err
}

func scanInvoice(row pgx.Row) (model.Invoice, error) {
	var (
		invoice model.Invoice
		raw     []byte
	)
	if err := row.Scan(&invoice.ID, &invoice.OwnerID, &invoice.FileName, &invoice.BlobKey, &invoice.Status, &raw, &invoice.UploadedAt, &invoice.UpdatedAt); err != nil {
		return model.Invoice{}, err
	}
	invoice.Data = model.InvoiceData{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &invoice.Data); err != nil {
			return model.Invoice{}, fmt.Errorf("decode invoice %s data: %w", invoice.ID, err)
		}
	}
	return invoice, nil
}
