// Package metering reads quota limits and usage counters from the
// usage-metering API.
package metering

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 15 * time.Second

// Client talks to the usage-metering API with a bearer key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds a metering client. An empty apiKey is allowed; calls
// then fail with a configuration error so the tool surface stays up.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Window computes the reporting window of the given length ending now.
func (c *Client) Window(hours float64) Window {
	return WindowFor(c.now(), hours)
}

// Limit is one quota limit with its consumption.
type Limit struct {
	Type      string `json:"type"`
	Total     int64  `json:"total"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	ResetAt   string `json:"reset_at,omitempty"`
}

// QuotaReport lists the account's quota limits.
type QuotaReport struct {
	Limits []Limit `json:"limits"`
}

// ModelUsage is one model's token and request consumption.
type ModelUsage struct {
	Model            string `json:"model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
}

// ModelUsageReport is per-model usage within a window.
type ModelUsageReport struct {
	Window Window       `json:"window"`
	Models []ModelUsage `json:"models"`
}

// ToolUsageReport counts builtin tool invocations within a window.
type ToolUsageReport struct {
	Window Window           `json:"window"`
	Tools  map[string]int64 `json:"tools"`
}

// UsageReport combines quota, model usage, and tool usage for one
// window.
type UsageReport struct {
	Window Window           `json:"window"`
	Quota  []Limit          `json:"quota"`
	Models []ModelUsage     `json:"models"`
	Tools  map[string]int64 `json:"tools"`
}

// wellKnownTools are always present in tool usage reports, at zero
// when the window recorded no calls.
var wellKnownTools = []string{"web_search", "web_reader"}

// QuotaLimits fetches the current quota limits.
func (c *Client) QuotaLimits(ctx context.Context) (*QuotaReport, error) {
	var raw struct {
		Limits []Limit `json:"limits"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/quota/limits", nil, &raw); err != nil {
		return nil, err
	}
	if raw.Limits == nil {
		raw.Limits = []Limit{}
	}
	return &QuotaReport{Limits: raw.Limits}, nil
}

// ModelUsage fetches per-model usage for the window.
func (c *Client) ModelUsage(ctx context.Context, w Window) (*ModelUsageReport, error) {
	var raw struct {
		Models []ModelUsage `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/usage/models", w.query(), &raw); err != nil {
		return nil, err
	}
	if raw.Models == nil {
		raw.Models = []ModelUsage{}
	}
	return &ModelUsageReport{Window: w, Models: raw.Models}, nil
}

// ToolUsage fetches builtin tool call counts for the window. Upstream
// reports a list of {tool, invocations} pairs; the report flattens it
// to a map with the well-known tools always present.
func (c *Client) ToolUsage(ctx context.Context, w Window) (*ToolUsageReport, error) {
	var raw struct {
		Tools []struct {
			Tool        string `json:"tool"`
			Invocations int64  `json:"invocations"`
		} `json:"tools"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/usage/tools", w.query(), &raw); err != nil {
		return nil, err
	}
	tools := make(map[string]int64, len(raw.Tools)+len(wellKnownTools))
	for _, name := range wellKnownTools {
		tools[name] = 0
	}
	for _, entry := range raw.Tools {
		if entry.Tool == "" {
			continue
		}
		tools[entry.Tool] = entry.Invocations
	}
	return &ToolUsageReport{Window: w, Tools: tools}, nil
}

// Usage fetches quota limits, model usage, and tool usage concurrently
// and combines them. Any upstream failure fails the whole call.
func (c *Client) Usage(ctx context.Context, w Window) (*UsageReport, error) {
	var (
		quota  *QuotaReport
		models *ModelUsageReport
		tools  *ToolUsageReport
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quota, err = c.QuotaLimits(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		models, err = c.ModelUsage(ctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		tools, err = c.ToolUsage(ctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &UsageReport{
		Window: w,
		Quota:  quota.Limits,
		Models: models.Models,
		Tools:  tools.Tools,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, result any) error {
	if c.apiKey == "" {
		return fmt.Errorf("metering API key not configured")
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("build metering request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("metering request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return fmt.Errorf(
			"metering %s %s failed: status=%d response_bytes=%d",
			method,
			path,
			resp.StatusCode,
			len(raw),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode metering response: %w", err)
	}
	return nil
}
