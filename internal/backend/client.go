// Package backend implements the HTTP client for the crawl backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/console"
)

// Config controls Client behavior.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the crawl backend. All methods convert non-2xx responses
// into errors except StartCrawl, whose 409/other outcomes are part of the
// crawl-start contract and are returned as data.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ConflictError reports a 409 response on a mutation, carrying the
// server-supplied detail. The backend uses it to reject duplicates, e.g.
// creating a profile whose name is already taken.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Detail == "" {
		return "conflict"
	}
	return e.Detail
}

// StartResult carries the crawl-start outcome when the request itself
// succeeded at the transport level.
type StartResult struct {
	// StatusCode is the raw HTTP status of the start response.
	StatusCode int
	// ConflictReason is the server-supplied reason on 409.
	ConflictReason string
	// Body is the raw response body for non-202, non-409 statuses.
	Body string
}

// FetchAds returns the full ad history. The caller is responsible for
// capping and ordering; decode failures (including a non-array payload)
// are returned as errors so stale data can be preserved upstream.
func (c *Client) FetchAds(ctx context.Context) ([]console.AdRecord, error) {
	body, err := c.get(ctx, "/api/ads")
	if err != nil {
		return nil, err
	}
	var rows []adWire
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode ads: %w", err)
	}
	out := make([]console.AdRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// ListKeywords fetches all keywords.
func (c *Client) ListKeywords(ctx context.Context) ([]console.Keyword, error) {
	body, err := c.get(ctx, "/api/keywords/")
	if err != nil {
		return nil, err
	}
	var rows []keywordWire
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	out := make([]console.Keyword, 0, len(rows))
	for _, row := range rows {
		out = append(out, console.Keyword{ID: row.ID.value, Text: row.Keyword})
	}
	return out, nil
}

// CreateKeyword adds one keyword.
func (c *Client) CreateKeyword(ctx context.Context, text string) error {
	return c.send(ctx, http.MethodPost, "/api/keywords/create", map[string]string{"keyword": text})
}

// DeleteKeyword removes a keyword by id.
func (c *Client) DeleteKeyword(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodPost, "/api/keywords/delete", map[string]string{"keyword_id": id})
}

// UpdateKeyword replaces the text of an existing keyword.
func (c *Client) UpdateKeyword(ctx context.Context, id, text string) error {
	return c.send(ctx, http.MethodPut, "/api/keywords/update", map[string]string{
		"keyword_id":  id,
		"new_keyword": text,
	})
}

// ListProfiles fetches all browser profiles.
func (c *Client) ListProfiles(ctx context.Context) ([]console.Profile, error) {
	body, err := c.get(ctx, "/api/profiles/")
	if err != nil {
		return nil, err
	}
	var rows []profileWire
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	out := make([]console.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, console.Profile{
			ID:               row.ID.value,
			Name:             row.Name,
			UserDataDir:      row.UserDataDir,
			ProfileDirectory: row.ProfileDirectory,
			UserAgent:        row.UserAgent,
		})
	}
	return out, nil
}

// CreateProfile registers a new browser profile.
func (c *Client) CreateProfile(ctx context.Context, p console.Profile) error {
	return c.send(ctx, http.MethodPost, "/api/profiles/create", map[string]string{
		"name":              p.Name,
		"user_data_dir":     p.UserDataDir,
		"profile_directory": p.ProfileDirectory,
		"user_agent":        p.UserAgent,
	})
}

// UpdateProfile applies a partial update to a profile.
func (c *Client) UpdateProfile(ctx context.Context, id string, updated map[string]string) error {
	return c.send(ctx, http.MethodPut, "/api/profiles/update", map[string]any{
		"profile_id":   id,
		"updated_data": updated,
	})
}

// DeleteProfile removes a profile by id.
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	u := c.baseURL + "/api/profiles/delete?profile_id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	defer c.closeBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete profile: status %d", resp.StatusCode)
	}
	return nil
}

// StartCrawl issues the start request. The returned error covers transport
// failure only; HTTP-level outcomes are reported through StartResult.
func (c *Client) StartCrawl(ctx context.Context) (StartResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/crawl", nil)
	if err != nil {
		return StartResult{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return StartResult{}, fmt.Errorf("start crawl: %w", err)
	}
	defer c.closeBody(resp.Body)

	result := StartResult{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusAccepted:
		return result, nil
	case http.StatusConflict:
		var payload struct {
			Error string `json:"error"`
		}
		// A malformed conflict body falls back to the default reason.
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			result.ConflictReason = payload.Error
		}
		return result, nil
	default:
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.logger.Warn("read crawl error body failed", zap.Error(readErr))
		}
		result.Body = string(raw)
		return result, nil
	}
}

// CrawlStatus polls the backend crawl status and returns the raw status
// string ("running", "done", or anything else the backend reports).
func (c *Client) CrawlStatus(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/api/crawl_status")
	if err != nil {
		return "", err
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode crawl status: %w", err)
	}
	return payload.Status, nil
}

// SchedulerConfig fetches the recurring-crawl cadence.
func (c *Client) SchedulerConfig(ctx context.Context) (console.SchedulerConfig, error) {
	body, err := c.get(ctx, "/api/scheduler/config")
	if err != nil {
		return console.SchedulerConfig{}, err
	}
	var cfg console.SchedulerConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return console.SchedulerConfig{}, fmt.Errorf("decode scheduler config: %w", err)
	}
	return cfg, nil
}

// UpdateSchedulerConfig replaces the recurring-crawl cadence.
func (c *Client) UpdateSchedulerConfig(ctx context.Context, cfg console.SchedulerConfig) error {
	return c.send(ctx, http.MethodPut, "/api/scheduler/config", cfg)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer c.closeBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer c.closeBody(resp.Body)
	if resp.StatusCode == http.StatusConflict {
		body, _ := io.ReadAll(resp.Body)
		var payload struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == "" {
			payload.Detail = strings.TrimSpace(string(body))
		}
		return &ConflictError{Detail: payload.Detail}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warn("close response body failed", zap.Error(err))
	}
}
