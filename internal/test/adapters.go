package test

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/adapter/razorpay"
	"github.com/polkiloo/invoicedesk/internal/adapter/tally"
	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/storage/blob"
)

// BlobStoreStub keeps objects in memory and can be told to fail.
type BlobStoreStub struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Types     map[string]string
	Deleted   []string
	PutErr    error
	GetErr    error
	DeleteErr error
}

// NewBlobStoreStub constructs an empty store.
func NewBlobStoreStub() *BlobStoreStub {
	return &BlobStoreStub{Objects: make(map[string][]byte), Types: make(map[string]string)}
}

func (s *BlobStoreStub) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = data
	s.Types[key] = contentType
	return nil
}

func (s *BlobStoreStub) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[key]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BlobStoreStub) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, key)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.Objects, key)
	return nil
}

// PaymentsStub fakes the payment provider.
type PaymentsStub struct {
	CreateFn func(context.Context, string) (*razorpay.Subscription, error)
	Key      string
	Valid    bool
}

func (s PaymentsStub) CreateSubscription(ctx context.Context, userID string) (*razorpay.Subscription, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, userID)
	}
	return &razorpay.Subscription{ID: "sub_" + userID, Status: "created"}, nil
}

func (s PaymentsStub) KeyID() string {
	if s.Key != "" {
		return s.Key
	}
	return "rzp_test"
}

func (s PaymentsStub) VerifySignature(paymentID, subscriptionID, signature string) bool {
	return s.Valid
}

// ExtractorStub returns configured extraction results.
type ExtractorStub struct {
	ExtractFn func(context.Context, string, []byte) (model.InvoiceData, error)
	Data      model.InvoiceData
	Err       error
}

func (s ExtractorStub) Extract(ctx context.Context, fileName string, content []byte) (model.InvoiceData, error) {
	if s.ExtractFn != nil {
		return s.ExtractFn(ctx, fileName, content)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Data.Clone(), nil
}

// ExporterStub records exported invoices.
type ExporterStub struct {
	mu       sync.Mutex
	Exported []model.Invoice
	Err      error
}

func (s *ExporterStub) Export(ctx context.Context, invoice model.Invoice) (*tally.Result, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exported = append(s.Exported, invoice)
	return &tally.Result{Ledger: "Invoices", Vouchers: 1, Messages: []string{"Successfully imported 1 vouchers"}}, nil
}

var _ blob.Store = (*BlobStoreStub)(nil)
var _ razorpay.Client = PaymentsStub{}
var _ tally.Exporter = (*ExporterStub)(nil)
