package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/baladia/taxe/internal/authz"
	"github.com/baladia/taxe/internal/models"
)

const (
	// UserIDHeader carries the authenticated user id set by the gateway.
	UserIDHeader = "X-User-ID"
	// UserRoleHeader carries the role of the authenticated user.
	UserRoleHeader = "X-User-Role"

	principalKey = "principal"
)

// Principal is the caller identity forwarded by the gateway.
type Principal struct {
	UserID string
	Role   models.Role
}

// Authorizer decides whether a role holds a permission.
type Authorizer interface {
	Authorize(role models.Role, p authz.Permission) error
}

// Identity reads the gateway identity headers. Requests without them pass
// through anonymously; a malformed role is rejected with 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		rawRole := strings.TrimSpace(c.GetHeader(UserRoleHeader))
		if userID == "" && rawRole == "" {
			c.Next()
			return
		}
		if userID == "" || rawRole == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Both X-User-ID and X-User-Role are required")
			return
		}

		role, err := models.ParseRole(rawRole)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unknown user role")
			return
		}

		c.Set(principalKey, Principal{UserID: userID, Role: role})
		c.Next()
	}
}

// RequirePermission rejects anonymous callers with 401 and callers whose role
// lacks p with 403.
func RequirePermission(a Authorizer, p authz.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		if err := a.Authorize(principal.Role, p); err != nil {
			if errors.Is(err, authz.ErrForbidden) {
				abortWithError(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to "+p.Action+" "+p.Object)
				return
			}
			_ = c.Error(err)
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Authorization check failed")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the caller identity stored by Identity.
func GetPrincipal(c *gin.Context) (Principal, bool) {
	if v, exists := c.Get(principalKey); exists {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	return Principal{}, false
}
