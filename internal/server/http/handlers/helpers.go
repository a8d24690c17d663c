package handlers

import (
	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/invoicedesk/internal/pkg/auth"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
	"github.com/polkiloo/invoicedesk/internal/server/http/middleware"
)

// CurrentClaims returns the verified token claims set by AuthRequired.
func CurrentClaims(c *gin.Context) *pkgAuth.Claims {
	val, ok := c.Get(middleware.ClaimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := val.(*pkgAuth.Claims)
	return claims
}

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) string {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UID
	}
	return ""
}

// respondError writes an error body and records err for the request logger.
func respondError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: message})
}
