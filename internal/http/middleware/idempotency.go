// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header sent with trigger webhooks.
// A valid key is stashed on the context; when a lookup reports that the same
// tenant already processed the key, the request is flagged as a replay so
// the rate limiter lets it through and the handler can answer from the
// stored delivery.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the caller's delivery key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the key was already processed for this tenant.
func IsReplay(c *gin.Context) bool { return c.GetBool(ctxKeyIdemReplay) }

// IdempotencyOptions configures key validation.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 128, the stored column size.
	MaxLen int
	// Pattern restricts key characters; nil means a URL-safe token set.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a live delivery exists for
// (tenantID, key). Expiry is the lookup's concern.
type IdempotencyLookup func(ctx context.Context, tenantID uint, key string, now time.Time) (bool, error)

// IdempotencyValidator checks the Idempotency-Key header on routes with a
// numeric :id tenant parameter. Requests without the header pass untouched;
// malformed keys get a 400.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil {
				// Lookup failures fall through to normal processing.
				if seen, _ := lookup(c.Request.Context(), uint(id), key, time.Now().UTC()); seen {
					c.Set(ctxKeyIdemReplay, true)
					c.Set(ctxKeyRateBypass, true)
				}
			}
		}
		c.Next()
	}
}
