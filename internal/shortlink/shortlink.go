// Package shortlink builds invoice deep links for the external invoice
// viewer and optionally shortens them through the vendor shortener API.
package shortlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is used when a tenant has no usable viewer base.
const DefaultBaseURL = "https://2025.shivsoftsindia.in/live_demo"

// Obfuscate encodes an id the way the invoice viewer expects. It is a
// compatibility transform, not encryption.
func Obfuscate(id int64) int64 {
	return ((id+1000)*7 + 5000) * 2
}

// LongURL composes the viewer link for an invoice. A base that is not an
// http(s) URL is replaced by fallback (or DefaultBaseURL when empty).
func LongURL(invoiceID, branchID int64, baseURL, fallback string) string {
	base := strings.TrimSpace(baseURL)
	if !strings.HasPrefix(base, "http") {
		base = fallback
		if base == "" {
			base = DefaultBaseURL
		}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%sinvoice.php?invMencr=%d&invshopid=%d", base, Obfuscate(invoiceID), Obfuscate(branchID))
}

// Config configures the shortener client.
type Config struct {
	Endpoint       string
	Token          string
	HeaderID       string
	DefaultBaseURL string
	Timeout        time.Duration
}

// Client calls the shortener API. The zero value is not usable; use New.
type Client struct {
	cfg  Config
	http *http.Client

	// OnFallback, when set, is called each time the long URL is returned
	// after a shortening attempt failed.
	OnFallback func(reason string)
}

// New returns a Client. A nil hc gets a client with cfg.Timeout.
func New(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc}
}

// Shorten returns a short link for the invoice, or the long URL when
// shortening is disabled or fails. It never returns an error.
func (c *Client) Shorten(ctx context.Context, invoiceID, branchID int64, baseURL string) string {
	long := LongURL(invoiceID, branchID, baseURL, c.cfg.DefaultBaseURL)
	if c.cfg.Token == "" || c.cfg.Endpoint == "" {
		return long
	}
	short, err := c.shorten(ctx, long)
	if err != nil {
		log.Warn().Err(err).Int64("invoice_id", invoiceID).Msg("link shortening failed; using long url")
		if c.OnFallback != nil {
			c.OnFallback(err.Error())
		}
		return long
	}
	return short
}

var errRejected = errors.New("shortener rejected request")

func (c *Client) shorten(ctx context.Context, long string) (string, error) {
	form := url.Values{
		"action":    {"generate_shorturl"},
		"token":     {c.cfg.Token},
		"header_id": {c.cfg.HeaderID},
		"url":       {long},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("malformed response (HTTP %d)", resp.StatusCode)
	}
	res := gjson.ParseBytes(body)
	short := strings.TrimSpace(res.Get("short_link").String())
	if res.Get("status").Int() != 1 || short == "" {
		return "", fmt.Errorf("%w: %s", errRejected, strings.TrimSpace(res.Get("message").String()))
	}
	return short, nil
}
