// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the access log. Customer phone numbers and emails reach
// this service in webhook query strings and headers, so every logged value
// is scrubbed first and credential headers are masked outright. Bodies are
// never logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions lists extra headers to mask in addition to Authorization,
// Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// UUIDs go first so the phone pattern never eats their digit groups.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\+?\d[\d .\-()]{8,}\d`)
)

// Redact scrubs ids, emails and phone numbers from s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger logs one line per request and attaches a request-scoped
// logger (request id, route, tenant id when the route has one) for handlers.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]bool{"authorization": true, "cookie": true, "set-cookie": true}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = true
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := routeOf(c)

		lc := log.With().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("route", route)
		if strings.HasPrefix(route, "/") && strings.Contains(route, "tenants/:id") {
			lc = lc.Str("tenant_id", c.Param("id"))
		}
		lg := lc.Logger()
		c.Set(loggerKey, &lg)

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if masked[strings.ToLower(k)] {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = Redact(strings.Join(vv, ", "))
		}
		query := Redact(c.Request.URL.RawQuery)

		c.Next()

		status := c.Writer.Status()
		ev := lg.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		}
		ev.Str("path", Redact(c.Request.URL.Path)).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
