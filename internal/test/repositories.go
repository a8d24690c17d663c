package test

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
)

// AccountRepositoryStub stores accounts in-memory for tests.
type AccountRepositoryStub struct {
	ByEmail map[string]*model.Account
	ByID    map[string]*model.Account
	Err     error
}

// NewAccountRepositoryStub constructs stub repository with initialized maps.
func NewAccountRepositoryStub() *AccountRepositoryStub {
	return &AccountRepositoryStub{
		ByEmail: make(map[string]*model.Account),
		ByID:    make(map[string]*model.Account),
	}
}

// Create registers account unless uid or email already exist or stub has explicit error.
func (s *AccountRepositoryStub) Create(ctx context.Context, account model.Account) (*model.Account, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if account.UID == "" {
		account.UID = uuid.NewString()
	}
	email := strings.ToLower(account.Email)
	if _, exists := s.ByID[account.UID]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if email != "" {
		if _, exists := s.ByEmail[email]; exists {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	stored := account
	s.ByID[account.UID] = &stored
	if email != "" {
		s.ByEmail[email] = &stored
	}
	return &account, nil
}

// GetByEmail fetches account by email or returns not found.
func (s *AccountRepositoryStub) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if acc, ok := s.ByEmail[strings.ToLower(email)]; ok {
		out := *acc
		return &out, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByID fetches account by uid or returns not found.
func (s *AccountRepositoryStub) GetByID(ctx context.Context, uid string) (*model.Account, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if acc, ok := s.ByID[uid]; ok {
		out := *acc
		return &out, nil
	}
	return nil, domainErrors.ErrNotFound
}

// SubscriptionRepositoryStub keeps subscriptions per user.
type SubscriptionRepositoryStub struct {
	mu        sync.Mutex
	Subs      map[string]model.Subscription
	GetErr    error
	UpsertErr error
	Upserts   []model.Subscription
}

// NewSubscriptionRepositoryStub constructs an empty stub.
func NewSubscriptionRepositoryStub() *SubscriptionRepositoryStub {
	return &SubscriptionRepositoryStub{Subs: make(map[string]model.Subscription)}
}

// GetByUser returns the stored subscription or not found.
func (s *SubscriptionRepositoryStub) GetByUser(ctx context.Context, uid string) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	sub, ok := s.Subs[uid]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &sub, nil
}

// Upsert records the write and stores the subscription.
func (s *SubscriptionRepositoryStub) Upsert(ctx context.Context, sub model.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	if s.Subs == nil {
		s.Subs = make(map[string]model.Subscription)
	}
	s.Upserts = append(s.Upserts, sub)
	s.Subs[sub.UserID] = sub
	return nil
}

var _ repository.AccountRepository = (*AccountRepositoryStub)(nil)
var _ repository.SubscriptionRepository = (*SubscriptionRepositoryStub)(nil)
