package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

var (
	ErrInvalidToken = errors.New("invalid auth token")
	ErrTokenRevoked = errors.New("auth token revoked")
)

// Token uses distinguish session tokens from one-time sign-in tokens.
const (
	TokenUseSession = "session"
	TokenUseCustom  = "custom"
)

// Claims is the JWT payload shared by session and custom tokens.
type Claims struct {
	UID       string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
	TokenUse  string `json:"token_use"`
	jwt.RegisteredClaims
}

// Identity returns the principal carried by the token.
func (c *Claims) Identity() model.Identity {
	return model.Identity{UID: c.UID, Email: c.Email, Anonymous: c.Anonymous}
}

// Strategy issues and verifies auth tokens.
type Strategy interface {
	IssueToken(identity model.Identity) (string, error)
	IssueCustomToken(uid string, ttl time.Duration) (string, error)
	ParseToken(token string) (*Claims, error)
	ParseCustomToken(token string) (*Claims, error)
	Name() string
}

type Options struct {
	TTL    time.Duration
	Issuer string
}
