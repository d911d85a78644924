// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file guards the trigger endpoints (cron sweep, webhooks) with a
// shared bearer secret.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerSecret rejects requests whose Authorization header does not carry
// "Bearer <secret>". An empty secret disables the check, which is how local
// and test deployments run.
func BearerSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		h := c.GetHeader("Authorization")
		const prefix = "bearer "
		if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
			abortUnauthorized(c)
			return
		}
		got := []byte(strings.TrimSpace(h[len(prefix):]))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Bearer realm="automations"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    "missing or invalid bearer token",
	})
}
