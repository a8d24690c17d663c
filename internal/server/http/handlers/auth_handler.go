package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	pkgAuth "github.com/polkiloo/invoicedesk/internal/pkg/auth"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
	"github.com/polkiloo/invoicedesk/internal/server/http/middleware"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

// AuthHandler processes sign-up, sign-in and session endpoints.
type AuthHandler struct {
	facade   AuthFacade
	tokenTTL time.Duration
}

// NewAuthHandler creates AuthHandler instance. tokenTTL sets the cookie lifetime.
func NewAuthHandler(facade AuthFacade, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{facade: facade, tokenTTL: tokenTTL}
}

// Register handles POST /api/user/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	session, err := h.facade.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidCredentials):
			respondError(c, http.StatusBadRequest, "invalid email or password", nil)
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			respondError(c, http.StatusConflict, "email already registered", nil)
		default:
			respondError(c, http.StatusInternalServerError, "failed to register", err)
		}
		return
	}

	h.writeSession(c, session)
}

// Login handles POST /api/user/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	session, err := h.facade.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "invalid email or password", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to sign in", err)
		return
	}

	h.writeSession(c, session)
}

// Anonymous handles POST /api/user/anonymous.
func (h *AuthHandler) Anonymous(c *gin.Context) {
	session, err := h.facade.SignInAnonymously(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to sign in", err)
		return
	}
	h.writeSession(c, session)
}

// Token handles POST /api/user/token, exchanging a one-time token for a session.
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.CustomTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "token is required", err)
		return
	}

	session, err := h.facade.SignInWithCustomToken(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, pkgAuth.ErrInvalidToken) || errors.Is(err, pkgAuth.ErrTokenRevoked) {
			respondError(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to sign in", err)
		return
	}

	h.writeSession(c, session)
}

// CustomToken handles POST /api/user/custom-token. It lets a signed-in user hand
// the session over to another client.
func (h *AuthHandler) CustomToken(c *gin.Context) {
	token, err := h.facade.IssueCustomToken(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			respondError(c, http.StatusNotFound, "account not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to issue token", err)
		return
	}
	c.JSON(http.StatusOK, dto.CustomTokenResponse{Token: token})
}

// Logout handles POST /api/user/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.facade.SignOut(c.Request.Context(), CurrentClaims(c)); err != nil {
		if errors.Is(err, pkgAuth.ErrInvalidToken) {
			respondError(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to sign out", err)
		return
	}
	middleware.ClearAuthCookie(c)
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/user/me.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := CurrentClaims(c)
	account, err := h.facade.Account(c.Request.Context(), claims.UID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			respondError(c, http.StatusNotFound, "account not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load account", err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{UID: account.UID, Email: account.Email, Anonymous: account.Anonymous})
}

// TouchProfile handles PUT /api/user/profile: the caller's email and the
// server time become the profile's last login.
func (h *AuthHandler) TouchProfile(c *gin.Context) {
	var req dto.ProfileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	identity := CurrentClaims(c).Identity()
	if req.Email != "" {
		identity.Email = req.Email
	}
	profile, err := h.facade.TouchProfile(c.Request.Context(), identity)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{UID: profile.UID, Email: profile.Email, LastLogin: profile.LastLogin})
}

// Profile handles GET /api/user/profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	profile, err := h.facade.Profile(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			respondError(c, http.StatusNotFound, "profile not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load profile", err)
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{UID: profile.UID, Email: profile.Email, LastLogin: profile.LastLogin})
}

func (h *AuthHandler) writeSession(c *gin.Context, session *usecase.Session) {
	middleware.SetAuthCookie(c, session.Token, int(h.tokenTTL/time.Second))
	c.JSON(http.StatusOK, dto.SessionResponse{
		UID:       session.Identity.UID,
		Email:     session.Identity.Email,
		Anonymous: session.Identity.Anonymous,
		Token:     session.Token,
	})
}

var _ middleware.TokenParser = (AuthFacade)(nil)
