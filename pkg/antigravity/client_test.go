package antigravity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, wantRefreshToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if got := r.PostForm.Get("refresh_token"); got != wantRefreshToken {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "at-fresh", "token_type": "Bearer", "expires_in": 3599}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefreshToken(t *testing.T) {
	tokenSrv := newTokenServer(t, "rt-good")
	client := NewClient("https://unused.example.com", tokenSrv.URL, "cid", "csecret", tokenSrv.Client())

	token, err := client.RefreshToken(context.Background(), "rt-good")
	require.NoError(t, err)
	assert.Equal(t, "at-fresh", token)
}

func TestRefreshTokenRejected(t *testing.T) {
	tokenSrv := newTokenServer(t, "rt-good")
	client := NewClient("https://unused.example.com", tokenSrv.URL, "cid", "csecret", tokenSrv.Client())

	_, err := client.RefreshToken(context.Background(), "rt-revoked")
	require.Error(t, err)
}

func TestRefreshTokenEmpty(t *testing.T) {
	client := NewClient("https://unused.example.com", "https://unused.example.com/token", "cid", "csecret", nil)

	_, err := client.RefreshToken(context.Background(), "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh token is empty")
}

func TestFetchModelQuotas(t *testing.T) {
	var seenBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1internal:fetchAvailableModels" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "antigravity/1.11.5 windows/amd64", r.Header.Get("User-Agent"))
		assert.Equal(t, "gl-node/22.17.0", r.Header.Get("X-Goog-Api-Client"))
		assert.NotEmpty(t, r.Header.Get("Client-Metadata"))
		seenBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"models": {
				"gemini-3-pro-high": {"quotaInfo": {"remainingFraction": 0.42, "resetTime": "2025-06-16T00:00:00Z"}},
				"gemini-3-flash": {"quotaInfo": {"remainingFraction": 1}},
				"chat_20706": {}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL+"/token", "cid", "csecret", srv.Client())
	quotas, err := client.FetchModelQuotas(context.Background(), "at-1", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(seenBody))
	require.Len(t, quotas, 3)

	pro := quotas[0]
	assert.Equal(t, "gemini-3-pro-high", pro.Model)
	require.NotNil(t, pro.RemainingFraction)
	assert.InDelta(t, 0.42, *pro.RemainingFraction, 1e-9)
	require.NotNil(t, pro.RemainingPct)
	assert.Equal(t, 42, *pro.RemainingPct)
	require.NotNil(t, pro.ResetTime)
	assert.Equal(t, "2025-06-16T00:00:00Z", *pro.ResetTime)

	flash := quotas[1]
	require.NotNil(t, flash.RemainingPct)
	assert.Equal(t, 100, *flash.RemainingPct)
	assert.Nil(t, flash.ResetTime)

	bare := quotas[2]
	assert.Equal(t, "chat_20706", bare.Model)
	assert.Nil(t, bare.RemainingFraction)
	assert.Nil(t, bare.RemainingPct)
	assert.Nil(t, bare.ResetTime)
}

func TestFetchModelQuotasSendsProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "proj-7", payload["project"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models": {}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL+"/token", "cid", "csecret", srv.Client())
	quotas, err := client.FetchModelQuotas(context.Background(), "at-1", "proj-7")
	require.NoError(t, err)
	assert.Empty(t, quotas)
	assert.NotNil(t, quotas)
}

func TestFetchCLIQuotas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1internal:retrieveUserQuota" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"buckets": [
				{"quotaId": "gemini-2.5-pro-daily", "model": "gemini-2.5-pro", "remainingFraction": 0.655, "resetTime": "2025-06-16T07:00:00Z"},
				{"quotaId": "gemini-2.5-flash-daily", "remainingFraction": 0}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL+"/token", "cid", "csecret", srv.Client())
	quotas, err := client.FetchCLIQuotas(context.Background(), "at-1", "")
	require.NoError(t, err)
	require.Len(t, quotas, 2)

	assert.Equal(t, "gemini-2.5-pro", quotas[0].Model)
	require.NotNil(t, quotas[0].RemainingPct)
	assert.Equal(t, 66, *quotas[0].RemainingPct)

	// No model field: quotaId stands in.
	assert.Equal(t, "gemini-2.5-flash-daily", quotas[1].Model)
	require.NotNil(t, quotas[1].RemainingPct)
	assert.Equal(t, 0, *quotas[1].RemainingPct)
}

func TestPostErrorNamesPathAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL+"/token", "cid", "csecret", srv.Client())
	_, err := client.FetchModelQuotas(context.Background(), "at-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "antigravity /v1internal:fetchAvailableModels failed: status=403")
}

func TestParseModelQuotasJunkPayloads(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"models": 7}`, `{"unrelated": true}`} {
		quotas := parseModelQuotas([]byte(body))
		assert.NotNil(t, quotas, "body %q", body)
		assert.Empty(t, quotas, "body %q", body)
	}
}

func TestParseModelQuotasMalformedFields(t *testing.T) {
	quotas := parseModelQuotas([]byte(`{
		"models": {
			"m-string": {"quotaInfo": {"remainingFraction": "soon", "resetTime": 5}},
			"m-null":   {"quotaInfo": {"remainingFraction": null}}
		}
	}`))
	require.Len(t, quotas, 2)
	for _, q := range quotas {
		assert.Nil(t, q.RemainingFraction, "model %s", q.Model)
		assert.Nil(t, q.RemainingPct, "model %s", q.Model)
		assert.Nil(t, q.ResetTime, "model %s", q.Model)
	}
}

func TestParseCLIQuotasJunkPayloads(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"buckets": {}}`, `{"buckets": null}`} {
		quotas := parseCLIQuotas([]byte(body))
		assert.NotNil(t, quotas, "body %q", body)
		assert.Empty(t, quotas, "body %q", body)
	}
}
