// Package memory keeps every record in process memory. It backs development
// runs and tests when no database is configured.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
	"github.com/polkiloo/invoicedesk/internal/storage/live"
)

type invoiceRecord struct {
	invoice model.Invoice
	seq     uint64
	claimed bool
}

// Storage is a repository.Factory over maps guarded by one mutex.
type Storage struct {
	mu            sync.RWMutex
	accounts      map[string]model.Account
	emails        map[string]string
	profiles      map[string]model.Profile
	invoices      map[string]*invoiceRecord
	subscriptions map[string]model.Subscription
	providerIDs   map[string]string
	seq           uint64

	hub    *live.Hub
	logger *slog.Logger
	now    func() time.Time
}

var _ repository.Factory = (*Storage)(nil)

type accountRepository struct{ s *Storage }
type profileRepository struct{ s *Storage }
type invoiceRepository struct{ s *Storage }
type subscriptionRepository struct{ s *Storage }

func New(logger *slog.Logger) *Storage {
	return &Storage{
		accounts:      make(map[string]model.Account),
		emails:        make(map[string]string),
		profiles:      make(map[string]model.Profile),
		invoices:      make(map[string]*invoiceRecord),
		subscriptions: make(map[string]model.Subscription),
		providerIDs:   make(map[string]string),
		hub:           live.NewHub(),
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Storage) Accounts() repository.AccountRepository { return &accountRepository{s: s} }

func (s *Storage) Profiles() repository.ProfileRepository { return &profileRepository{s: s} }

func (s *Storage) Invoices() repository.InvoiceRepository { return &invoiceRepository{s: s} }

func (s *Storage) Subscriptions() repository.SubscriptionRepository {
	return &subscriptionRepository{s: s}
}

func (s *Storage) HealthCheck(context.Context) error { return nil }

func (s *Storage) Close() {}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *accountRepository) Create(_ context.Context, account model.Account) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if account.UID == "" {
		account.UID = uuid.NewString()
	}
	if _, ok := r.s.accounts[account.UID]; ok {
		return nil, domainErrors.ErrAlreadyExists
	}
	key := normalizeEmail(account.Email)
	if key != "" {
		if _, ok := r.s.emails[key]; ok {
			return nil, domainErrors.ErrAlreadyExists
		}
		r.s.emails[key] = account.UID
	}
	account.CreatedAt = r.s.now()
	r.s.accounts[account.UID] = account
	return &account, nil
}

func (r *accountRepository) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	uid, ok := r.s.emails[normalizeEmail(email)]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	account := r.s.accounts[uid]
	return &account, nil
}

func (r *accountRepository) GetByID(_ context.Context, uid string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	account, ok := r.s.accounts[uid]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &account, nil
}

func (r *profileRepository) Upsert(_ context.Context, uid, email string) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	profile := model.Profile{UID: uid, Email: email, LastLogin: r.s.now()}
	r.s.profiles[uid] = profile
	return &profile, nil
}

func (r *profileRepository) Get(_ context.Context, uid string) (*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	profile, ok := r.s.profiles[uid]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &profile, nil
}

func (r *invoiceRepository) Create(_ context.Context, invoice model.Invoice) (*model.Invoice, error) {
	r.s.mu.Lock()
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	if _, ok := r.s.invoices[invoice.ID]; ok {
		r.s.mu.Unlock()
		return nil, domainErrors.ErrAlreadyExists
	}
	now := r.s.now()
	invoice.Data = invoice.Data.Clone()
	invoice.UploadedAt = now
	invoice.UpdatedAt = now
	r.s.seq++
	r.s.invoices[invoice.ID] = &invoiceRecord{invoice: invoice.Clone(), seq: r.s.seq}
	r.s.mu.Unlock()

	r.s.hub.Publish(invoice.OwnerID)
	return &invoice, nil
}

func (r *invoiceRepository) Get(_ context.Context, ownerID, id string) (*model.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.invoices[id]
	if !ok || rec.invoice.OwnerID != ownerID {
		return nil, domainErrors.ErrNotFound
	}
	invoice := rec.invoice.Clone()
	return &invoice, nil
}

func (r *invoiceRepository) ListByOwner(_ context.Context, ownerID string) ([]model.Invoice, error) {
	r.s.mu.RLock()
	records := make([]*invoiceRecord, 0)
	for _, rec := range r.s.invoices {
		if rec.invoice.OwnerID == ownerID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.invoice.UploadedAt.Equal(b.invoice.UploadedAt) {
			return a.invoice.UploadedAt.After(b.invoice.UploadedAt)
		}
		return a.seq > b.seq
	})
	result := make([]model.Invoice, 0, len(records))
	for _, rec := range records {
		result = append(result, rec.invoice.Clone())
	}
	r.s.mu.RUnlock()
	return result, nil
}

func (r *invoiceRepository) Replace(_ context.Context, invoice model.Invoice) (*model.Invoice, error) {
	r.s.mu.Lock()
	rec, ok := r.s.invoices[invoice.ID]
	if !ok || rec.invoice.OwnerID != invoice.OwnerID {
		r.s.mu.Unlock()
		return nil, domainErrors.ErrNotFound
	}
	rec.invoice.FileName = invoice.FileName
	rec.invoice.Status = invoice.Status
	rec.invoice.Data = invoice.Data.Clone()
	rec.invoice.UpdatedAt = r.s.now()
	out := rec.invoice.Clone()
	r.s.mu.Unlock()

	r.s.hub.Publish(out.OwnerID)
	return &out, nil
}

func (r *invoiceRepository) Delete(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	rec, ok := r.s.invoices[id]
	if !ok || rec.invoice.OwnerID != ownerID {
		r.s.mu.Unlock()
		return domainErrors.ErrNotFound
	}
	delete(r.s.invoices, id)
	r.s.mu.Unlock()

	r.s.hub.Publish(ownerID)
	return nil
}

func (r *invoiceRepository) Watch(ctx context.Context, ownerID string) (<-chan []model.Invoice, error) {
	changes, unsubscribe := r.s.hub.Subscribe(ownerID)
	initial, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	load := func(ctx context.Context) ([]model.Invoice, error) { return r.ListByOwner(ctx, ownerID) }
	return live.Stream(ctx, initial, changes, unsubscribe, load, r.s.logger), nil
}

func (r *invoiceRepository) ClaimForExtraction(_ context.Context, limit int) ([]model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pending := make([]*invoiceRecord, 0)
	for _, rec := range r.s.invoices {
		if rec.invoice.Status == model.InvoiceStatusPending && !rec.claimed {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]model.Invoice, 0, len(pending))
	for _, rec := range pending {
		rec.claimed = true
		claimed = append(claimed, rec.invoice.Clone())
	}
	return claimed, nil
}

func (r *invoiceRepository) CompleteExtraction(_ context.Context, id string, data model.InvoiceData) error {
	r.s.mu.Lock()
	rec, ok := r.s.invoices[id]
	if !ok || rec.invoice.Status != model.InvoiceStatusPending {
		r.s.mu.Unlock()
		return nil
	}
	rec.claimed = false
	rec.invoice.Status = model.InvoiceStatusProcessed
	rec.invoice.Data = data.Clone()
	rec.invoice.UpdatedAt = r.s.now()
	owner := rec.invoice.OwnerID
	r.s.mu.Unlock()

	r.s.hub.Publish(owner)
	return nil
}

func (r *invoiceRepository) ReleaseExtraction(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec, ok := r.s.invoices[id]; ok {
		rec.claimed = false
	}
	return nil
}

func (r *subscriptionRepository) GetByUser(_ context.Context, uid string) (*model.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub, ok := r.s.subscriptions[uid]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &sub, nil
}

func (r *subscriptionRepository) Upsert(_ context.Context, sub model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if owner, ok := r.s.providerIDs[sub.ProviderID]; ok && owner != sub.UserID {
		return domainErrors.ErrAlreadyExists
	}
	now := r.s.now()
	if existing, ok := r.s.subscriptions[sub.UserID]; ok {
		sub.CreatedAt = existing.CreatedAt
		if existing.ProviderID != sub.ProviderID {
			delete(r.s.providerIDs, existing.ProviderID)
		}
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	r.s.subscriptions[sub.UserID] = sub
	r.s.providerIDs[sub.ProviderID] = sub.UserID
	return nil
}
