package repository

import (
	"context"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// AccountRepository stores credentials managed by the auth provider.
type AccountRepository interface {
	Create(ctx context.Context, account model.Account) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, uid string) (*model.Account, error)
}

// ProfileRepository keeps the per-user profile refreshed on sign-in.
type ProfileRepository interface {
	Upsert(ctx context.Context, uid, email string) (*model.Profile, error)
	Get(ctx context.Context, uid string) (*model.Profile, error)
}
