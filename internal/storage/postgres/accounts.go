package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

const accountColumns = `id, email, password_hash, anonymous, created_at`

func (r *accountRepository) Create(ctx context.Context, account model.Account) (*model.Account, error) {
	const query = `INSERT INTO accounts (id, email, password_hash, anonymous) VALUES ($1, $2, $3, $4) RETURNING created_at`
	if account.UID == "" {
		account.UID = uuid.NewString()
	}
	err := r.storage.pool.QueryRow(ctx, query, account.UID, account.Email, account.PasswordHash, account.Anonymous).Scan(&account.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email=$1 AND email <> ''`
	return r.get(ctx, query, email)
}

func (r *accountRepository) GetByID(ctx context.Context, uid string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return r.get(ctx, query, uid)
}

func (r *accountRepository) get(ctx context.Context, query string, arg string) (*model.Account, error) {
	var a model.Account
	err := r.storage.pool.QueryRow(ctx, query, arg).Scan(&a.UID, &a.Email, &a.PasswordHash, &a.Anonymous, &a.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

func (r *profileRepository) Upsert(ctx context.Context, uid, email string) (*model.Profile, error) {
	const query = `INSERT INTO profiles (uid, email, last_login) VALUES ($1, $2, NOW())
                   ON CONFLICT (uid) DO UPDATE SET email = EXCLUDED.email, last_login = EXCLUDED.last_login
                   RETURNING uid, email, last_login`
	var p model.Profile
	if err := r.storage.pool.QueryRow(ctx, query, uid, email).Scan(&p.UID, &p.Email, &p.LastLogin); err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (r *profileRepository) Get(ctx context.Context, uid string) (*model.Profile, error) {
	const query = `SELECT uid, email, last_login FROM profiles WHERE uid=$1`
	var p model.Profile
	if err := r.storage.pool.QueryRow(ctx, query, uid).Scan(&p.UID, &p.Email, &p.LastLogin); err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}
