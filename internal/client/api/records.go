package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
)

const snapshotEvent = "snapshot"

// WatchInvoices opens the invoice stream. The channel is closed when ctx is
// done or the stream ends.
func (c *Client) WatchInvoices(ctx context.Context) (<-chan []model.Invoice, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/invoices/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, remoteError(resp)
	}

	out := make(chan []model.Invoice, 1)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		err := readEvents(resp.Body, func(ev event) bool {
			if ev.name != snapshotEvent {
				return true
			}
			var payload []dto.InvoiceResponse
			if err := json.Unmarshal([]byte(ev.data), &payload); err != nil {
				c.logger.Warn("skipping malformed invoice snapshot", slog.Any("error", err))
				return true
			}
			snapshot := make([]model.Invoice, 0, len(payload))
			for _, item := range payload {
				snapshot = append(snapshot, item.ToModel())
			}
			select {
			case out <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("invoice stream ended", slog.Any("error", err))
		}
	}()
	return out, nil
}

// ReplaceInvoice writes the whole record.
func (c *Client) ReplaceInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	in := dto.InvoiceRequest{
		FileName: invoice.FileName,
		Status:   string(invoice.Status),
		Data:     invoice.Data,
	}
	var out dto.InvoiceResponse
	if err := c.doJSON(ctx, http.MethodPut, invoicePath(invoice.ID), in, &out); err != nil {
		return nil, err
	}
	saved := out.ToModel()
	return &saved, nil
}

func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, invoicePath(id), nil, nil)
}

// UpsertProfile refreshes the profile record of identity.
func (c *Client) UpsertProfile(ctx context.Context, identity model.Identity) error {
	return c.doJSON(ctx, http.MethodPut, "/api/user/profile", dto.ProfileRequest{Email: identity.Email}, nil)
}

func invoicePath(id string) string {
	return fmt.Sprintf("/api/invoices/%s", url.PathEscape(id))
}
