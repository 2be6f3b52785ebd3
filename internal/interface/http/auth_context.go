package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/weather-fortune/internal/domain/auth"
)

const sessionClaimsKey = "session_claims"

// setClaims stores the validated session claims for downstream handlers.
func setClaims(c *gin.Context, claims auth.Claims) {
	c.Set(sessionClaimsKey, claims)
}

func getClaims(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(sessionClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	if !ok || claims.SessionID == "" {
		return auth.Claims{}, false
	}
	return claims, true
}
