package firestore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestTranslateError(t *testing.T) {
	if err := translateError(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := translateError(status.Error(codes.NotFound, "missing")); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := translateError(status.Error(codes.AlreadyExists, "dup")); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	raw := errors.New("boom")
	if err := translateError(raw); err != raw {
		t.Fatalf("expected raw error, got %v", err)
	}
}

func TestEmailKeyNormalizes(t *testing.T) {
	if emailKey(" User@Example.com ") != emailKey("user@example.com") {
		t.Fatal("expected case and whitespace insensitive key")
	}
	if emailKey("a/b@example.com") == emailKey("ab@example.com") {
		t.Fatal("expected distinct keys")
	}
	if len(emailKey("x@y.z")) != 64 {
		t.Fatal("expected hex sha256 key")
	}
}

func TestInvoiceDocRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	invoice := model.Invoice{
		ID:       "inv-1",
		OwnerID:  "u1",
		FileName: "a.pdf",
		BlobKey:  "u1/inv-1/a.pdf",
		Status:   model.InvoiceStatusPending,
		Data: model.InvoiceData{
			"customerName": model.Text("Acme"),
			"lineCount":    model.Number(decimal.NewFromInt(2)),
			"items": model.Items(model.LineItem{
				Description: "Widget",
				Quantity:    decimal.NewFromInt(2),
				Price:       decimal.RequireFromString("1.5"),
				Total:       decimal.NewFromInt(3),
			}),
		},
		UploadedAt: now,
		UpdatedAt:  now,
	}

	back := newInvoiceDoc(invoice).model("inv-1", discardLogger())
	if back.OwnerID != "u1" || back.Status != model.InvoiceStatusPending || !back.UploadedAt.Equal(now) {
		t.Fatalf("unexpected invoice %+v", back)
	}
	if !back.Data.Equal(invoice.Data) {
		t.Fatalf("expected data to survive, got %v", back.Data)
	}
}

func TestDecodeDataSkipsForeignValues(t *testing.T) {
	data := decodeData("inv-1", map[string]any{
		"invoiceNumber": "INV-1",
		"paid":          true,
		"meta":          map[string]any{"a": 1},
		"quantity":      int64(3),
	}, discardLogger())

	if len(data) != 2 {
		t.Fatalf("expected unsupported fields to be skipped, got %v", data)
	}
	if n, ok := data["quantity"].Number(); !ok || !n.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected quantity %v", data["quantity"])
	}
}

func TestNewRequiresProject(t *testing.T) {
	if _, err := New(context.Background(), Options{}, discardLogger()); err == nil {
		t.Fatal("expected error without project id")
	}
}

// The tests below need the Firestore emulator (FIRESTORE_EMULATOR_HOST).

func newEmulatorStorage(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}
	s, err := New(context.Background(), Options{ProjectID: "invoicedesk-test", AppID: "app-" + uuid.NewString()}, discardLogger())
	if err != nil {
		t.Fatalf("connect emulator: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestEmulatorInvoiceLifecycle(t *testing.T) {
	s := newEmulatorStorage(t)
	ctx := context.Background()
	repo := s.Invoices()

	if err := s.HealthCheck(ctx); err != nil {
		t.Fatalf("health check: %v", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	snapshots, err := repo.Watch(watchCtx, "u1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if initial := <-snapshots; len(initial) != 0 {
		t.Fatalf("expected empty collection, got %v", initial)
	}

	created, err := repo.Create(ctx, model.Invoice{OwnerID: "u1", FileName: "a.pdf", Status: model.InvoiceStatusPending})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case list := <-snapshots:
			seen = len(list) == 1 && list[0].ID == created.ID
		case <-deadline:
			t.Fatal("timeout waiting for snapshot")
		}
	}

	if _, err := repo.Get(ctx, "u2", created.ID); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected owner scoping, got %v", err)
	}

	claimed, err := repo.ClaimForExtraction(ctx, 5)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("unexpected claim %v err=%v", claimed, err)
	}
	if err := repo.CompleteExtraction(ctx, created.ID, model.InvoiceData{"lineCount": model.Number(decimal.NewFromInt(1))}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := repo.Get(ctx, "u1", created.ID)
	if err != nil || got.Status != model.InvoiceStatusProcessed {
		t.Fatalf("unexpected invoice %+v err=%v", got, err)
	}

	if err := repo.Delete(ctx, "u2", created.ID); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected owner scoped delete, got %v", err)
	}
	if err := repo.Delete(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestEmulatorAccountsAndSubscriptions(t *testing.T) {
	s := newEmulatorStorage(t)
	ctx := context.Background()

	acc, err := s.Accounts().Create(ctx, model.Account{Email: "a@b.c", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := s.Accounts().Create(ctx, model.Account{Email: "A@B.C"}); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	got, err := s.Accounts().GetByEmail(ctx, "a@b.c")
	if err != nil || got.UID != acc.UID {
		t.Fatalf("unexpected account %+v err=%v", got, err)
	}

	if _, err := s.Profiles().Upsert(ctx, acc.UID, acc.Email); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	if err := s.Subscriptions().Upsert(ctx, model.Subscription{UserID: acc.UID, ProviderID: "sub_1", State: model.SubscriptionStateCreated}); err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if err := s.Subscriptions().Upsert(ctx, model.Subscription{UserID: "other", ProviderID: "sub_1"}); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected provider conflict, got %v", err)
	}
}
