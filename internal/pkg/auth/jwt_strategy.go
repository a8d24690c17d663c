package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

const defaultIssuer = "invoicedesk"

// JWTStrategy signs HS256 tokens with a shared secret.
type JWTStrategy struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTStrategy builds JWTStrategy with provided secret and options.
func NewJWTStrategy(secret string, opts Options) *JWTStrategy {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &JWTStrategy{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// IssueToken generates a session token for the identity.
func (s *JWTStrategy) IssueToken(identity model.Identity) (string, error) {
	return s.sign(Claims{
		UID:       identity.UID,
		Email:     identity.Email,
		Anonymous: identity.Anonymous,
		TokenUse:  TokenUseSession,
	}, s.ttl)
}

// IssueCustomToken generates a one-time sign-in token for uid.
func (s *JWTStrategy) IssueCustomToken(uid string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return s.sign(Claims{UID: uid, TokenUse: TokenUseCustom}, ttl)
}

// ParseToken validates a session token.
func (s *JWTStrategy) ParseToken(token string) (*Claims, error) {
	return s.parse(token, TokenUseSession)
}

// ParseCustomToken validates a one-time sign-in token.
func (s *JWTStrategy) ParseCustomToken(token string) (*Claims, error) {
	return s.parse(token, TokenUseCustom)
}

func (s *JWTStrategy) Name() string {
	return "jwt"
}

func (s *JWTStrategy) sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTStrategy) parse(token, use string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != use || claims.UID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
