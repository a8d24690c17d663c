package test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
	pkgAuth "github.com/polkiloo/invoicedesk/internal/pkg/auth"
)

// HasherStub provides deterministic hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for the supplied password.
func (h HasherStub) Hash(password string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(password)
	}
	return "hash:" + password, nil
}

// Compare validates password against stored hash.
func (h HasherStub) Compare(hash string, password string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, password)
	}
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// StrategyStub issues readable tokens of the form "<use>:<uid>:<jti>".
type StrategyStub struct {
	IssueFn       func(model.Identity) (string, error)
	IssueCustomFn func(string, time.Duration) (string, error)
	ParseFn       func(string) (*pkgAuth.Claims, error)
	NameVal       string
}

// IssueToken returns deterministic session tokens for tests.
func (s StrategyStub) IssueToken(identity model.Identity) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(identity)
	}
	return pkgAuth.TokenUseSession + ":" + identity.UID + ":jti-" + identity.UID, nil
}

// IssueCustomToken returns deterministic one-time tokens for tests.
func (s StrategyStub) IssueCustomToken(uid string, ttl time.Duration) (string, error) {
	if s.IssueCustomFn != nil {
		return s.IssueCustomFn(uid, ttl)
	}
	return pkgAuth.TokenUseCustom + ":" + uid + ":custom-" + uid, nil
}

// ParseToken parses session tokens produced by IssueToken.
func (s StrategyStub) ParseToken(token string) (*pkgAuth.Claims, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return parseStubToken(token, pkgAuth.TokenUseSession)
}

// ParseCustomToken parses one-time tokens produced by IssueCustomToken.
func (s StrategyStub) ParseCustomToken(token string) (*pkgAuth.Claims, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return parseStubToken(token, pkgAuth.TokenUseCustom)
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

func parseStubToken(token, use string) (*pkgAuth.Claims, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != use || parts[1] == "" {
		return nil, pkgAuth.ErrInvalidToken
	}
	return &pkgAuth.Claims{
		UID:      parts[1],
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        parts[2],
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, nil
}

// TokenParserStub implements middleware token parsing contract.
type TokenParserStub struct {
	Claims  *pkgAuth.Claims
	Err     error
	ParseFn func(context.Context, string) (*pkgAuth.Claims, error)
}

// ParseToken either delegates to override or returns predefined result.
func (s TokenParserStub) ParseToken(ctx context.Context, token string) (*pkgAuth.Claims, error) {
	if s.ParseFn != nil {
		return s.ParseFn(ctx, token)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Claims, nil
}

var _ pkgAuth.PasswordHasher = HasherStub{}
var _ pkgAuth.Strategy = StrategyStub{}
