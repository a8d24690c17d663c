package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
	"github.com/polkiloo/invoicedesk/internal/storage/live"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	dsn    string
	logger *slog.Logger
	hub    *live.Hub

	mu             sync.Mutex
	stopListener   context.CancelFunc
	listenerDone   chan struct{}
	listenerClosed bool
}

var _ repository.Factory = (*Storage)(nil)

type accountRepository struct {
	storage *Storage
}

type profileRepository struct {
	storage *Storage
}

type invoiceRepository struct {
	storage *Storage
}

type subscriptionRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := newStorage(pool, dsn, logger)
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

func newStorage(pool pgxPool, dsn string, logger *slog.Logger) *Storage {
	return &Storage{pool: pool, dsn: dsn, logger: logger, hub: live.NewHub()}
}

// Close stops the change listener and releases database resources.
func (s *Storage) Close() {
	s.mu.Lock()
	s.listenerClosed = true
	stop, done := s.stopListener, s.listenerDone
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) Accounts() repository.AccountRepository {
	return &accountRepository{storage: s}
}

func (s *Storage) Profiles() repository.ProfileRepository {
	return &profileRepository{storage: s}
}

func (s *Storage) Invoices() repository.InvoiceRepository {
	return &invoiceRepository{storage: s}
}

func (s *Storage) Subscriptions() repository.SubscriptionRepository {
	return &subscriptionRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL DEFAULT '',
            anonymous BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email) WHERE email <> ''`,
		`CREATE TABLE IF NOT EXISTS profiles (
            uid TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
            email TEXT NOT NULL DEFAULT '',
            last_login TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS invoices (
            id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
            file_name TEXT NOT NULL,
            blob_key TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            data JSONB NOT NULL DEFAULT '{}'::jsonb,
            extract_claimed BOOLEAN NOT NULL DEFAULT FALSE,
            uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_owner ON invoices(owner_id, uploaded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_pending ON invoices(uploaded_at) WHERE status = 'Pending' AND NOT extract_claimed`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
            user_id TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
            provider_id TEXT UNIQUE NOT NULL,
            state TEXT NOT NULL,
            payment_id TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE OR REPLACE FUNCTION notify_invoices_changed() RETURNS trigger AS $$
        BEGIN
            PERFORM pg_notify('` + invoicesChannel + `', COALESCE(NEW.owner_id, OLD.owner_id));
            RETURN NULL;
        END;
        $$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS invoices_changed_write ON invoices`,
		`CREATE TRIGGER invoices_changed_write AFTER INSERT OR DELETE ON invoices
            FOR EACH ROW EXECUTE FUNCTION notify_invoices_changed()`,
		`DROP TRIGGER IF EXISTS invoices_changed_update ON invoices`,
		`CREATE TRIGGER invoices_changed_update AFTER UPDATE ON invoices
            FOR EACH ROW
            WHEN (OLD.status IS DISTINCT FROM NEW.status
                OR OLD.data IS DISTINCT FROM NEW.data
                OR OLD.file_name IS DISTINCT FROM NEW.file_name)
            EXECUTE FUNCTION notify_invoices_changed()`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domainErrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domainErrors.ErrAlreadyExists
	}
	return err
}
