package model

import "time"

// Identity is the authenticated principal issued by the auth provider.
type Identity struct {
	UID       string
	Email     string
	Anonymous bool
}

// Account is the credential record the auth provider keeps for an identity.
type Account struct {
	UID          string
	Email        string
	PasswordHash string
	Anonymous    bool
	CreatedAt    time.Time
}

// Identity returns the public part of the account.
func (a Account) Identity() Identity {
	return Identity{UID: a.UID, Email: a.Email, Anonymous: a.Anonymous}
}

// Profile is the lightweight per-user record refreshed on every sign-in.
type Profile struct {
	UID       string
	Email     string
	LastLogin time.Time
}
