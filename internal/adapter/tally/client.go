package tally

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

const dateLayout = "20060102"

// Exporter pushes invoices into the accounting system.
type Exporter interface {
	Export(ctx context.Context, invoice model.Invoice) (*Result, error)
}

// Result summarises one export.
type Result struct {
	Ledger   string   `json:"ledger"`
	Vouchers int      `json:"vouchers"`
	Messages []string `json:"messages"`
}

// Options configures HTTPClient.
type Options struct {
	URL          string
	Company      string
	Ledger       string
	ContraLedger string
}

// HTTPClient talks to the Tally HTTP server using XML envelopes.
type HTTPClient struct {
	endpoint   *url.URL
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
	newGUID    func() string
}

// NewHTTPClient creates a Tally client with default timeout.
func NewHTTPClient(opts Options, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse tally url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("tally url must be absolute")
	}
	if opts.Company == "" || opts.Ledger == "" {
		return nil, fmt.Errorf("tally company and ledger must be provided")
	}
	if opts.ContraLedger == "" {
		opts.ContraLedger = "Cash"
	}
	return &HTTPClient{
		endpoint: parsed,
		opts:     opts,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		newGUID: func() string { return strings.ToUpper(uuid.NewString()) },
	}, nil
}

// Export creates the party ledger and imports one receipt voucher per line item.
func (c *HTTPClient) Export(ctx context.Context, invoice model.Invoice) (*Result, error) {
	items, _ := invoice.Data["items"].Items()
	vouchers := c.buildVouchers(invoice, items)
	if len(vouchers) == 0 {
		return nil, domainErrors.ErrNothingToExport
	}

	result := &Result{Ledger: c.opts.Ledger}

	if err := c.CreateLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	result.Messages = append(result.Messages, fmt.Sprintf("Ledger '%s' created/updated successfully", c.opts.Ledger))

	if err := c.send(ctx, newEnvelope(reportVouchers, c.opts.Company, vouchers...)); err != nil {
		return nil, fmt.Errorf("failed to import vouchers: %w", err)
	}
	result.Vouchers = len(vouchers)
	result.Messages = append(result.Messages, fmt.Sprintf("Successfully imported %d vouchers", len(vouchers)))

	c.logger.Info("invoice exported to tally",
		slog.String("invoice_id", invoice.ID),
		slog.Int("vouchers", len(vouchers)),
	)
	return result, nil
}

// CreateLedger creates or updates the party ledger under Sundry Debtors.
func (c *HTTPClient) CreateLedger(ctx context.Context) error {
	msg := tallyMessage{
		UDF: udfNamespace,
		Ledger: &ledger{
			NameAttr:       c.opts.Ledger,
			Name:           c.opts.Ledger,
			Parent:         ledgerParent,
			AffectsStock:   "No",
			IsBillWiseOn:   "Yes",
			IsRevenue:      "No",
			OpeningBalance: "0",
		},
	}
	return c.send(ctx, newEnvelope(reportAllMasters, c.opts.Company, msg))
}

func (c *HTTPClient) buildVouchers(invoice model.Invoice, items []model.LineItem) []tallyMessage {
	date := invoice.UploadedAt
	if date.IsZero() {
		date = time.Now()
	}
	dt := date.Format(dateLayout)

	messages := make([]tallyMessage, 0, len(items))
	for i, item := range items {
		if item.Quantity.IsZero() {
			continue
		}
		amount := item.Price.StringFixed(2)
		narration := fmt.Sprintf("%s | Qty: %s %s | Rate: %s", item.Description, item.Quantity.String(), item.Unit, amount)
		messages = append(messages, tallyMessage{
			UDF: udfNamespace,
			Voucher: &voucher{
				VoucherType:     voucherReceipt,
				Action:          "Create",
				GUID:            c.newGUID(),
				Date:            dt,
				EffectiveDate:   dt,
				Number:          fmt.Sprintf("INV-%03d", i+100),
				TypeName:        voucherReceipt,
				PersistedView:   accountingView,
				Narration:       narration,
				PartyLedgerName: c.opts.Ledger,
				Entries: []ledgerEntry{
					{LedgerName: c.opts.Ledger, IsDeemedPositive: "Yes", Amount: "-" + amount},
					{LedgerName: c.opts.ContraLedger, IsDeemedPositive: "No", Amount: amount},
				},
			},
		})
	}
	return messages
}

func (c *HTTPClient) send(ctx context.Context, env envelope) error {
	payload, err := xml.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode tally request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return fmt.Errorf("request to tally timed out: %w", err)
		}
		return fmt.Errorf("failed to connect to tally: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("tally request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return fmt.Errorf("tally error: %s", resp.Status)
	}

	var parsed importResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	if res := parsed.result(); res.Errors > 0 {
		if res.LineError != "" {
			return fmt.Errorf("tally rejected %d entries: %s", res.Errors, res.LineError)
		}
		return fmt.Errorf("tally rejected %d entries", res.Errors)
	}
	return nil
}
