package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/identity/auth"
)

const claimsContextKey = "authClaims"

// AuthRequired rejects requests without a valid Bearer access token and
// stores the verified claims on the context.
func AuthRequired(verify func(token string) (*auth.Claims, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, apperrors.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}

		claims, err := verify(token)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// claimsFrom returns the verified claims stored by AuthRequired.
func claimsFrom(c *gin.Context) (*auth.Claims, bool) {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}
