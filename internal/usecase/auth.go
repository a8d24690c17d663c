package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
	pkgAuth "github.com/polkiloo/invoicedesk/internal/pkg/auth"
)

const customTokenTTL = time.Hour

// Session is a signed-in identity together with its bearer token.
type Session struct {
	Identity model.Identity
	Token    string
}

// AuthUseCase handles account lifecycle and token management.
type AuthUseCase struct {
	accounts repository.AccountRepository
	hasher   pkgAuth.PasswordHasher
	tokens   pkgAuth.Strategy
	revoker  pkgAuth.Revoker
	now      func() time.Time
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(accounts repository.AccountRepository, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy, revoker pkgAuth.Revoker) *AuthUseCase {
	return &AuthUseCase{accounts: accounts, hasher: hasher, tokens: strategy, revoker: revoker, now: time.Now}
}

// Register creates a new account with email/password and returns a session.
func (u *AuthUseCase) Register(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	acc, err := u.accounts.Create(ctx, model.Account{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}

	return u.session(acc.Identity())
}

// Authenticate validates credentials and returns a session.
func (u *AuthUseCase) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domainErrors.ErrInvalidCredentials
	}

	acc, err := u.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if acc.PasswordHash == "" {
		return nil, domainErrors.ErrInvalidCredentials
	}
	if err := u.hasher.Compare(acc.PasswordHash, password); err != nil {
		return nil, domainErrors.ErrInvalidCredentials
	}

	return u.session(acc.Identity())
}

// SignInAnonymously creates a throwaway account without credentials.
func (u *AuthUseCase) SignInAnonymously(ctx context.Context) (*Session, error) {
	acc, err := u.accounts.Create(ctx, model.Account{UID: uuid.NewString(), Anonymous: true})
	if err != nil {
		return nil, err
	}
	return u.session(acc.Identity())
}

// IssueCustomToken mints a one-time sign-in token for an existing account.
func (u *AuthUseCase) IssueCustomToken(ctx context.Context, uid string) (string, error) {
	if _, err := u.accounts.GetByID(ctx, uid); err != nil {
		return "", err
	}
	return u.tokens.IssueCustomToken(uid, customTokenTTL)
}

// SignInWithCustomToken exchanges a one-time token for a session. The token is
// burned on first use; an unknown uid gets a fresh account.
func (u *AuthUseCase) SignInWithCustomToken(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, pkgAuth.ErrInvalidToken
	}
	claims, err := u.tokens.ParseCustomToken(token)
	if err != nil {
		return nil, err
	}

	first, err := u.revoker.Claim(ctx, claims.ID, u.expiry(claims))
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, pkgAuth.ErrTokenRevoked
	}

	acc, err := u.accounts.GetByID(ctx, claims.UID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		acc, err = u.accounts.Create(ctx, model.Account{UID: claims.UID})
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			acc, err = u.accounts.GetByID(ctx, claims.UID)
		}
	}
	if err != nil {
		return nil, err
	}

	return u.session(acc.Identity())
}

// ParseToken validates a session token and rejects revoked ones.
func (u *AuthUseCase) ParseToken(ctx context.Context, token string) (*pkgAuth.Claims, error) {
	if token == "" {
		return nil, pkgAuth.ErrInvalidToken
	}
	claims, err := u.tokens.ParseToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := u.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, pkgAuth.ErrTokenRevoked
	}
	return claims, nil
}

// SignOut revokes the session token until it would have expired anyway.
func (u *AuthUseCase) SignOut(ctx context.Context, claims *pkgAuth.Claims) error {
	if claims == nil || claims.ID == "" {
		return pkgAuth.ErrInvalidToken
	}
	return u.revoker.Revoke(ctx, claims.ID, u.expiry(claims))
}

// GetByID fetches account by identifier.
func (u *AuthUseCase) GetByID(ctx context.Context, uid string) (*model.Account, error) {
	return u.accounts.GetByID(ctx, uid)
}

func (u *AuthUseCase) session(identity model.Identity) (*Session, error) {
	token, err := u.tokens.IssueToken(identity)
	if err != nil {
		return nil, err
	}
	return &Session{Identity: identity, Token: token}, nil
}

func (u *AuthUseCase) expiry(claims *pkgAuth.Claims) time.Time {
	if claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return u.now().Add(24 * time.Hour)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
