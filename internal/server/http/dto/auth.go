package dto

import "time"

// AuthRequest describes email/password payload.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CustomTokenRequest carries a one-time sign-in token.
type CustomTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// CustomTokenResponse returns a freshly issued one-time sign-in token.
type CustomTokenResponse struct {
	Token string `json:"token"`
}

// SessionResponse describes the signed-in identity and its bearer token.
type SessionResponse struct {
	UID       string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous"`
	Token     string `json:"token,omitempty"`
}

// ProfileRequest is the body of a profile upsert.
type ProfileRequest struct {
	Email string `json:"email"`
}

// ProfileResponse mirrors the stored profile.
type ProfileResponse struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	LastLogin time.Time `json:"lastLogin"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
