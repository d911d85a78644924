// Package whatsapp is a small client for the WhatsApp Cloud API (Meta Graph
// API): template sends and template listing with per-tenant credentials.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrMissingCredentials is returned when a send lacks a phone number id,
// token or recipient.
var ErrMissingCredentials = errors.New("whatsapp: missing credentials")

// APIError is a rejection reported by the Graph API.
type APIError struct {
	HTTPStatus int
	Code       int64
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("whatsapp: %s (code %d, HTTP %d)", e.Message, e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("whatsapp: %s (HTTP %d)", e.Message, e.HTTPStatus)
}

// Credentials identify the tenant's business account and sender.
type Credentials struct {
	PhoneNumberID string
	Token         string
	WABAID        string
}

// TemplateMessage is one template send.
type TemplateMessage struct {
	To         string
	Name       string
	Language   string
	Components []Component
}

// SendResult carries the provider message id of an accepted send.
type SendResult struct {
	MessageID string `json:"message_id"`
}

// Config configures the Graph API endpoint.
type Config struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

// Client talks to the Graph API.
type Client struct {
	base    string
	version string
	http    *http.Client
}

// New returns a Client. A nil hc gets a client with cfg.Timeout.
func New(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	version := cfg.APIVersion
	if version == "" {
		version = "v18.0"
	}
	return &Client{base: strings.TrimRight(cfg.BaseURL, "/"), version: version, http: hc}
}

type languageCode struct {
	Code string `json:"code"`
}

type templatePayload struct {
	Name       string       `json:"name"`
	Language   languageCode `json:"language"`
	Components []Component  `json:"components"`
}

type sendPayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templatePayload `json:"template"`
}

// Send posts a template message. The recipient is normalized first.
func (c *Client) Send(ctx context.Context, creds Credentials, msg TemplateMessage) (SendResult, error) {
	to := NormalizePhone(msg.To)
	if creds.PhoneNumberID == "" || creds.Token == "" || to == "" {
		return SendResult{}, ErrMissingCredentials
	}
	components := msg.Components
	if components == nil {
		components = []Component{}
	}
	body, err := json.Marshal(sendPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: templatePayload{
			Name:       msg.Name,
			Language:   languageCode{Code: NormalizeLanguage(msg.Language, "en")},
			Components: components,
		},
	})
	if err != nil {
		return SendResult{}, err
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", c.base, c.version, url.PathEscape(creds.PhoneNumberID))
	res, err := c.do(ctx, http.MethodPost, endpoint, creds.Token, body)
	if err != nil {
		return SendResult{}, err
	}
	id := res.Get("messages.0.id").String()
	if id == "" {
		return SendResult{}, errors.New("whatsapp: response carried no message id")
	}
	return SendResult{MessageID: id}, nil
}

// Template is an approved template as listed by the provider.
type Template struct {
	Name       string
	Status     string
	Category   string
	Language   string
	Components json.RawMessage
}

const maxTemplatePages = 20

// ListTemplates returns the business account's APPROVED templates,
// following paging cursors.
func (c *Client) ListTemplates(ctx context.Context, creds Credentials) ([]Template, error) {
	if creds.WABAID == "" || creds.Token == "" {
		return nil, ErrMissingCredentials
	}
	next := fmt.Sprintf("%s/%s/%s/message_templates?limit=500", c.base, c.version, url.PathEscape(creds.WABAID))

	var out []Template
	for page := 0; next != "" && page < maxTemplatePages; page++ {
		res, err := c.do(ctx, http.MethodGet, next, creds.Token, nil)
		if err != nil {
			return nil, err
		}
		res.Get("data").ForEach(func(_, t gjson.Result) bool {
			if !strings.EqualFold(t.Get("status").String(), "APPROVED") {
				return true
			}
			comps := t.Get("components").Raw
			if comps == "" {
				comps = "[]"
			}
			out = append(out, Template{
				Name:       t.Get("name").String(),
				Status:     strings.ToUpper(t.Get("status").String()),
				Category:   t.Get("category").String(),
				Language:   t.Get("language").String(),
				Components: json.RawMessage(comps),
			})
			return true
		})
		next = res.Get("paging.next").String()
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body []byte) (gjson.Result, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("whatsapp: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("whatsapp: read response: %w", err)
	}
	res := gjson.ParseBytes(raw)
	if msg := res.Get("error.message").String(); msg != "" {
		return res, &APIError{HTTPStatus: resp.StatusCode, Code: res.Get("error.code").Int(), Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, &APIError{HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return res, nil
}
