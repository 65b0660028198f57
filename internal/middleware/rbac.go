package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// Policy describes who may reach a route. SelfParam names a path parameter
// that, when equal to the caller's user id, grants access regardless of role.
type Policy struct {
	Roles     []models.UserRole
	SelfParam string
	AnyRole   bool
}

// Authorize enforces policy against the claims set by JWT.
func Authorize(policy Policy) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(policy.Roles))
	for _, role := range policy.Roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if policy.AnyRole && claims.Role.Valid() {
			c.Next()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if policy.SelfParam != "" {
			if target := c.Param(policy.SelfParam); target != "" && target == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles admits only the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return Authorize(Policy{Roles: roles})
}

// RequireRolesOrSelf admits the listed roles and the user named by param.
func RequireRolesOrSelf(param string, roles ...models.UserRole) gin.HandlerFunc {
	return Authorize(Policy{Roles: roles, SelfParam: param})
}

// RequireAuthenticated admits any user with a known role.
func RequireAuthenticated() gin.HandlerFunc {
	return Authorize(Policy{AnyRole: true})
}
