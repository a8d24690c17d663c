// Package firestore stores records in Cloud Firestore under artifacts/{appId}.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
)

// Options selects the Firestore project and the application namespace.
type Options struct {
	ProjectID       string
	CredentialsFile string
	AppID           string
}

// Storage is a repository.Factory backed by a Firestore client.
type Storage struct {
	client *firestore.Client
	appID  string
	logger *slog.Logger
	now    func() time.Time
}

var _ repository.Factory = (*Storage)(nil)

type accountRepository struct{ s *Storage }
type profileRepository struct{ s *Storage }
type invoiceRepository struct{ s *Storage }
type subscriptionRepository struct{ s *Storage }

// New connects to Firestore. FIRESTORE_EMULATOR_HOST is honoured by the client.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Storage, error) {
	if opts.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	return &Storage{client: client, appID: opts.AppID, logger: logger, now: time.Now}, nil
}

func (s *Storage) Accounts() repository.AccountRepository { return &accountRepository{s: s} }

func (s *Storage) Profiles() repository.ProfileRepository { return &profileRepository{s: s} }

func (s *Storage) Invoices() repository.InvoiceRepository { return &invoiceRepository{s: s} }

func (s *Storage) Subscriptions() repository.SubscriptionRepository {
	return &subscriptionRepository{s: s}
}

// HealthCheck reads the application root document. A missing document is healthy.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := s.root().Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

func (s *Storage) Close() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.logger.Warn("close firestore client", slog.String("error", err.Error()))
	}
}

func (s *Storage) root() *firestore.DocumentRef {
	return s.client.Collection("artifacts").Doc(s.appID)
}

func (s *Storage) invoices() *firestore.CollectionRef {
	return s.root().Collection("public").Doc("data").Collection("invoices")
}

func (s *Storage) users() *firestore.CollectionRef {
	return s.root().Collection("users")
}

func (s *Storage) accounts() *firestore.CollectionRef {
	return s.root().Collection("accounts")
}

func (s *Storage) accountEmails() *firestore.CollectionRef {
	return s.root().Collection("account_emails")
}

func (s *Storage) subscriptions() *firestore.CollectionRef {
	return s.root().Collection("subscriptions")
}

// emailKey derives a document id from an email address, which may contain '/'.
func emailKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

func translateError(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return err
	case codes.NotFound:
		return domainErrors.ErrNotFound
	case codes.AlreadyExists:
		return domainErrors.ErrAlreadyExists
	default:
		return err
	}
}
