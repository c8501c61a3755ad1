package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokengate/internal/application/dto"
	"github.com/turtacn/tokengate/pkg/errors"
)

// RequireAuthenticated rejects requests without a principal with 401.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			dto.AbortWithError(c, errors.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

// RequireAuthority rejects anonymous requests with 401 and principals holding
// none of names with 403.
func RequireAuthority(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			dto.AbortWithError(c, errors.ErrUnauthenticated)
			return
		}
		if !p.HasAnyAuthority(names...) {
			dto.AbortWithError(c, errors.ErrForbidden)
			return
		}
		c.Next()
	}
}
