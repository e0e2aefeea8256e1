package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/velmor/dnslinkbot/internal/config"
)

// Client talks to the Cloudflare v4 record-management API. It binds to exactly
// one zone for its lifetime; every call carries the configured per-request
// timeout and is never retried internally.
type Client struct {
	apiToken   string
	zoneID     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Record is a single DNS resource record as the provider reports it.
type Record struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// DNSError is any provider rejection or transport failure. Detail carries the
// raw provider message so the operator sees exactly what Cloudflare said.
type DNSError struct {
	Op     string
	Detail string
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("cloudflare %s: %s", e.Op, e.Detail)
}

type envelope struct {
	Success bool            `json:"success"`
	Errors  []envelopeError `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type envelopeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	return &Client{
		apiToken: cfg.CFAPIToken,
		zoneID:   cfg.CFZoneID,
		baseURL:  strings.TrimRight(cfg.CFAPIBase, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		log: log,
	}
}

// Find returns the first record matching name+type, optionally narrowed to an
// exact content value, or nil when no record matches.
func (c *Client) Find(ctx context.Context, name, rtype string, content ...string) (*Record, error) {
	records, err := c.list(ctx, name, rtype, content...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Upsert creates or updates a record keyed by name+type. When a record with
// that name and type already exists the first match is updated in place;
// content is never part of the match. The proxied flag only applies to
// address and alias record types.
func (c *Client) Upsert(ctx context.Context, rtype, name, content string, ttl int, proxied bool) (*Record, error) {
	existing, err := c.Find(ctx, name, rtype)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"type":    rtype,
		"name":    name,
		"content": content,
		"ttl":     ttl,
	}
	if rtype == "A" || rtype == "AAAA" || rtype == "CNAME" {
		payload["proxied"] = proxied
	}

	if existing != nil {
		return c.writeRecord(ctx, http.MethodPut, "/dns_records/"+existing.ID, payload, "update record")
	}
	return c.writeRecord(ctx, http.MethodPost, "/dns_records", payload, "create record")
}

// CreateIfAbsent adds a record only when no record with that exact
// name+type+content exists, leaving any sibling record of the same name+type
// untouched. The second return value reports whether a record was created.
// This is the only safe way to introduce a second record sharing a name+type
// pair, since Upsert would overwrite the first match.
func (c *Client) CreateIfAbsent(ctx context.Context, rtype, name, content string, ttl int) (*Record, bool, error) {
	existing, err := c.Find(ctx, name, rtype, content)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	payload := map[string]any{
		"type":    rtype,
		"name":    name,
		"content": content,
		"ttl":     ttl,
	}
	rec, err := c.writeRecord(ctx, http.MethodPost, "/dns_records", payload, "create record")
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Delete removes every record matching name+type (optionally narrowed by
// exact content) and returns how many the provider acknowledged deleting.
// Zero matches is a valid outcome, not an error.
func (c *Client) Delete(ctx context.Context, name, rtype string, content ...string) (int, error) {
	records, err := c.list(ctx, name, rtype, content...)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rec := range records {
		env, err := c.do(ctx, http.MethodDelete, "/dns_records/"+rec.ID, nil, nil)
		if err != nil {
			return deleted, err
		}
		if env.Success {
			deleted++
		}
	}
	return deleted, nil
}

func (c *Client) list(ctx context.Context, name, rtype string, content ...string) ([]Record, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("type", rtype)
	env, err := c.do(ctx, http.MethodGet, "/dns_records", params, nil)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(env.Result, &records); err != nil {
		return nil, &DNSError{Op: "list records", Detail: fmt.Sprintf("decode result: %v", err)}
	}
	if len(content) > 0 && content[0] != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Content == content[0] {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	return records, nil
}

func (c *Client) writeRecord(ctx context.Context, method, path string, payload map[string]any, op string) (*Record, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &DNSError{Op: op, Detail: fmt.Sprintf("marshal payload: %v", err)}
	}
	env, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(env.Result, &rec); err != nil {
		return nil, &DNSError{Op: op, Detail: fmt.Sprintf("decode result: %v", err)}
	}
	return &rec, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte) (*envelope, error) {
	fullURL := fmt.Sprintf("%s/zones/%s%s", c.baseURL, c.zoneID, path)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	op := fmt.Sprintf("%s %s", method, path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, &DNSError{Op: op, Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DNSError{Op: op, Detail: err.Error()}
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DNSError{Op: op, Detail: fmt.Sprintf("read response: %v", err)}
	}

	var env envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, &DNSError{Op: op, Detail: fmt.Sprintf("status=%d body=%s", resp.StatusCode, truncateBody(rawBody))}
	}
	if resp.StatusCode >= 300 || !env.Success {
		detail := formatErrors(env.Errors)
		if detail == "" {
			detail = fmt.Sprintf("status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
		}
		if c.log != nil {
			c.log.Error("cloudflare request failed", "op", op, "status", resp.StatusCode, "detail", detail)
		}
		return nil, &DNSError{Op: op, Detail: detail}
	}
	return &env, nil
}

func formatErrors(errs []envelopeError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(parts, "; ")
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
