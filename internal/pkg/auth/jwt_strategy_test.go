package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

func TestNewJWTStrategy_Defaults(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	if string(strategy.secret) != "secret" {
		t.Fatalf("unexpected secret: %q", string(strategy.secret))
	}
	if strategy.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
	if strategy.issuer != defaultIssuer {
		t.Fatalf("unexpected issuer: %s", strategy.issuer)
	}
	if strategy.Name() != "jwt" {
		t.Fatalf("unexpected name: %s", strategy.Name())
	}
}

func TestJWTStrategy_IssueAndParse(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{TTL: time.Minute})
	token, err := strategy.IssueToken(model.Identity{UID: "u-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := strategy.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UID != "u-1" || claims.Email != "a@example.com" || claims.Anonymous {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" || claims.Subject != "u-1" {
		t.Fatalf("expected token id and subject, got %+v", claims.RegisteredClaims)
	}
	if id := claims.Identity(); id.UID != "u-1" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestJWTStrategy_TokenUseIsEnforced(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	custom, err := strategy.IssueCustomToken("u-2", 0)
	if err != nil {
		t.Fatalf("issue custom token: %v", err)
	}
	if _, err := strategy.ParseToken(custom); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("custom token must not be accepted as session, got %v", err)
	}
	claims, err := strategy.ParseCustomToken(custom)
	if err != nil || claims.UID != "u-2" {
		t.Fatalf("unexpected custom parse result %+v %v", claims, err)
	}

	session, _ := strategy.IssueToken(model.Identity{UID: "u-2"})
	if _, err := strategy.ParseCustomToken(session); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("session token must not be accepted as custom, got %v", err)
	}
}

func TestJWTStrategy_ParseRejects(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{TTL: time.Minute})
	valid, _ := strategy.IssueToken(model.Identity{UID: "u-3"})

	other := NewJWTStrategy("other-secret", Options{TTL: time.Minute})
	foreign, _ := other.IssueToken(model.Identity{UID: "u-3"})

	expired := NewJWTStrategy("secret", Options{TTL: time.Minute})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _ := expired.IssueToken(model.Identity{UID: "u-3"})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UID: "u-3", TokenUse: TokenUseSession})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	for name, token := range map[string]string{
		"garbage":  "not-a-token",
		"foreign":  foreign,
		"expired":  stale,
		"unsigned": unsigned,
		"tampered": tampered,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
