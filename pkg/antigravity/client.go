// Package antigravity reads per-model quota for stored Antigravity
// accounts from Google's cloudcode endpoints.
package antigravity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// Upstream protocol constants. The OAuth client identifies the
// Antigravity IDE itself; individual users authenticate with their
// stored refresh tokens.
const (
	modelsPath    = "/v1internal:fetchAvailableModels"
	userQuotaPath = "/v1internal:retrieveUserQuota"

	userAgent      = "antigravity/1.11.5 windows/amd64"
	xGoogAPIClient = "gl-node/22.17.0"
	clientMetadata = "ideType=IDE_UNSPECIFIED,platform=PLATFORM_UNSPECIFIED,pluginType=GEMINI"

	defaultTimeout = 15 * time.Second
)

// ModelQuota is the remaining quota for one model on one surface. The
// pointer fields stay nil when the upstream payload carries no quota
// info for the model.
type ModelQuota struct {
	Model             string   `json:"model"`
	RemainingFraction *float64 `json:"remaining_fraction"`
	RemainingPct      *int     `json:"remaining_pct"`
	ResetTime         *string  `json:"reset_time"`
}

func newModelQuota(model string, fraction, reset gjson.Result) ModelQuota {
	q := ModelQuota{Model: model}
	// Anything that is not a plain number (absent, null, string) stays
	// null rather than coercing to zero.
	if fraction.Type == gjson.Number {
		f := fraction.Float()
		pct := int(math.Round(f * 100))
		q.RemainingFraction = &f
		q.RemainingPct = &pct
	}
	if reset.Type == gjson.String && reset.String() != "" {
		r := reset.String()
		q.ResetTime = &r
	}
	return q
}

// Client talks to the Antigravity quota endpoints and the Google OAuth
// token endpoint.
type Client struct {
	baseURL    string
	oauth      oauth2.Config
	httpClient *http.Client
}

// NewClient builds an Antigravity client.
func NewClient(baseURL, tokenURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		httpClient: httpClient,
	}
}

// RefreshToken exchanges a stored refresh token for an access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", fmt.Errorf("refresh token is empty")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}
	return token.AccessToken, nil
}

// FetchModelQuotas reads per-model editor quota from the models
// endpoint. Models without quota info are kept with null fractions.
func (c *Client) FetchModelQuotas(ctx context.Context, accessToken, projectID string) ([]ModelQuota, error) {
	body, err := c.post(ctx, modelsPath, accessToken, projectID)
	if err != nil {
		return nil, err
	}
	return parseModelQuotas(body), nil
}

// FetchCLIQuotas reads Gemini CLI quota buckets from the user-quota
// endpoint.
func (c *Client) FetchCLIQuotas(ctx context.Context, accessToken, projectID string) ([]ModelQuota, error) {
	body, err := c.post(ctx, userQuotaPath, accessToken, projectID)
	if err != nil {
		return nil, err
	}
	return parseCLIQuotas(body), nil
}

func parseModelQuotas(body []byte) []ModelQuota {
	quotas := []ModelQuota{}
	models := gjson.GetBytes(body, "models")
	if !models.IsObject() {
		return quotas
	}
	models.ForEach(func(key, value gjson.Result) bool {
		quotas = append(quotas, newModelQuota(
			key.String(),
			value.Get("quotaInfo.remainingFraction"),
			value.Get("quotaInfo.resetTime"),
		))
		return true
	})
	return quotas
}

func parseCLIQuotas(body []byte) []ModelQuota {
	quotas := []ModelQuota{}
	buckets := gjson.GetBytes(body, "buckets")
	if !buckets.IsArray() {
		return quotas
	}
	buckets.ForEach(func(_, bucket gjson.Result) bool {
		model := bucket.Get("model").String()
		if model == "" {
			model = bucket.Get("quotaId").String()
		}
		quotas = append(quotas, newModelQuota(
			model,
			bucket.Get("remainingFraction"),
			bucket.Get("resetTime"),
		))
		return true
	})
	return quotas
}

func (c *Client) post(ctx context.Context, path, accessToken, projectID string) ([]byte, error) {
	payload := map[string]any{}
	if projectID != "" {
		payload["project"] = projectID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal antigravity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build antigravity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Goog-Api-Client", xGoogAPIClient)
	req.Header.Set("Client-Metadata", clientMetadata)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("antigravity request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read antigravity response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("antigravity %s failed: status=%d", path, resp.StatusCode)
	}
	return raw, nil
}
