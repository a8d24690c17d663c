package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

type accountDoc struct {
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	Anonymous    bool      `firestore:"anonymous"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

type emailDoc struct {
	UID string `firestore:"uid"`
}

type profileDoc struct {
	Email     string    `firestore:"email"`
	LastLogin time.Time `firestore:"lastLogin"`
}

func (r *accountRepository) Create(ctx context.Context, account model.Account) (*model.Account, error) {
	if account.UID == "" {
		account.UID = uuid.NewString()
	}
	account.CreatedAt = r.s.now().UTC()
	doc := accountDoc{
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Anonymous:    account.Anonymous,
		CreatedAt:    account.CreatedAt,
	}

	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(r.s.accounts().Doc(account.UID), doc); err != nil {
			return err
		}
		if account.Email == "" {
			return nil
		}
		return tx.Create(r.s.accountEmails().Doc(emailKey(account.Email)), emailDoc{UID: account.UID})
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	snap, err := r.s.accountEmails().Doc(emailKey(email)).Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	var ref emailDoc
	if err := snap.DataTo(&ref); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ref.UID)
}

func (r *accountRepository) GetByID(ctx context.Context, uid string) (*model.Account, error) {
	snap, err := r.s.accounts().Doc(uid).Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	var doc accountDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return &model.Account{
		UID:          uid,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Anonymous:    doc.Anonymous,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// Upsert merges email and lastLogin into users/{uid}, leaving other fields intact.
func (r *profileRepository) Upsert(ctx context.Context, uid, email string) (*model.Profile, error) {
	now := r.s.now().UTC()
	_, err := r.s.users().Doc(uid).Set(ctx, map[string]any{
		"email":     email,
		"lastLogin": now,
	}, firestore.MergeAll)
	if err != nil {
		return nil, translateError(err)
	}
	return &model.Profile{UID: uid, Email: email, LastLogin: now}, nil
}

func (r *profileRepository) Get(ctx context.Context, uid string) (*model.Profile, error) {
	snap, err := r.s.users().Doc(uid).Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return &model.Profile{UID: uid, Email: doc.Email, LastLogin: doc.LastLogin}, nil
}
