package middleware

import (
	"context"
	"net/http"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/response"
	"github.com/ctkuo2438/NUboard/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKeyAccess is the Gin context key for the caller's access view.
const ContextKeyAccess = "access"

// AccessResolver returns the current access view of a user.
type AccessResolver interface {
	UserAccess(ctx context.Context, userID int64) (model.UserAccessView, error)
}

// LoadAccess resolves the authenticated caller's roles and permissions and
// rejects disabled accounts. Must run after RequireJWT or RequireWSAuth.
func LoadAccess(resolver AccessResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		view, err := resolver.UserAccess(c.Request.Context(), claims.UserID)
		if err != nil {
			if service.KindOf(err) == service.KindUserNotFound {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrDatabase)
			return
		}
		if !view.Enabled {
			response.AbortFail(c, http.StatusForbidden, response.ErrAccountDisabled)
			return
		}

		c.Set(ContextKeyAccess, &view)
		c.Next()
	}
}

// RequireRole checks that the caller holds role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		view := GetAccess(c)
		if view == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !view.HasRole(role) {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}
		c.Next()
	}
}

// RequirePermission checks that the caller's effective permission set contains code.
func RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		view := GetAccess(c)
		if view == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !view.HasPermission(code) {
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}
		c.Next()
	}
}

// GetAccess retrieves the caller's access view from the Gin context.
func GetAccess(c *gin.Context) *model.UserAccessView {
	val, exists := c.Get(ContextKeyAccess)
	if !exists {
		return nil
	}
	view, ok := val.(*model.UserAccessView)
	if !ok {
		return nil
	}
	return view
}
