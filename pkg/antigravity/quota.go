package antigravity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// AccountSource lists the accounts to aggregate.
type AccountSource interface {
	Load() ([]Account, error)
}

// QuotaClient is the upstream surface the aggregation needs. *Client
// implements it.
type QuotaClient interface {
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	FetchModelQuotas(ctx context.Context, accessToken, projectID string) ([]ModelQuota, error)
	FetchCLIQuotas(ctx context.Context, accessToken, projectID string) ([]ModelQuota, error)
}

// Service aggregates quota across all stored accounts.
type Service struct {
	store  AccountSource
	client QuotaClient
	log    *zap.Logger
}

// NewService builds the aggregation service.
func NewService(store AccountSource, client QuotaClient, log *zap.Logger) *Service {
	return &Service{store: store, client: client, log: log}
}

// AccountQuota is one account's quota snapshot. Failures encountered
// while producing it accumulate in Errors; the remaining fields hold
// whatever could still be fetched.
type AccountQuota struct {
	AccountIndex      int          `json:"account_index"`
	Email             string       `json:"email"`
	Enabled           bool         `json:"enabled"`
	ProjectID         string       `json:"projectId,omitempty"`
	AntigravityModels []ModelQuota `json:"antigravity_models"`
	GeminiCLIQuota    []ModelQuota `json:"gemini_cli_quota"`
	Errors            []string     `json:"errors"`
}

// SummaryEntry tracks the best availability for one model across
// accounts. BestRemainingPct is -1 until some account reports a
// positive remaining percentage.
type SummaryEntry struct {
	BestRemainingPct  int `json:"best_remaining_pct"`
	AccountsAvailable int `json:"accounts_available"`
}

// Snapshot is the full cross-account quota picture.
type Snapshot struct {
	Accounts []AccountQuota           `json:"accounts"`
	Summary  map[string]*SummaryEntry `json:"summary"`
}

// All fetches quota for every stored account concurrently and folds
// the results into a cross-account summary. Individual account
// failures land in that account's Errors; only an unloadable account
// list fails the call.
func (s *Service) All(ctx context.Context) (*Snapshot, error) {
	accounts, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	results := make([]AccountQuota, len(accounts))
	var wg sync.WaitGroup
	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account Account) {
			defer wg.Done()
			results[i] = s.accountQuota(ctx, i, account)
		}(i, account)
	}
	wg.Wait()

	return &Snapshot{
		Accounts: results,
		Summary:  summarize(results),
	}, nil
}

// One fetches quota for a single account picked by index or email.
func (s *Service) One(ctx context.Context, identifier any) (*AccountQuota, error) {
	accounts, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	index, err := resolveAccount(accounts, identifier)
	if err != nil {
		return nil, err
	}
	result := s.accountQuota(ctx, index, accounts[index])
	return &result, nil
}

// accountQuota runs the per-account pipeline: enabled check, refresh
// token check, token refresh, then both quota fetches concurrently,
// each allowed to fail on its own.
func (s *Service) accountQuota(ctx context.Context, index int, account Account) AccountQuota {
	result := AccountQuota{
		AccountIndex:      index,
		Email:             account.Email,
		Enabled:           account.IsEnabled(),
		ProjectID:         account.ProjectID,
		AntigravityModels: []ModelQuota{},
		GeminiCLIQuota:    []ModelQuota{},
		Errors:            []string{},
	}

	if !result.Enabled {
		result.Errors = append(result.Errors, "Account is disabled")
		return result
	}
	if account.RefreshToken == "" {
		result.Errors = append(result.Errors, "No refresh token stored for this account")
		return result
	}

	token, err := s.client.RefreshToken(ctx, account.RefreshToken)
	if err != nil {
		s.log.Warn("Token refresh failed",
			zap.Int("account_index", index),
			zap.String("email", account.Email),
			zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("Token refresh failed: %v", err))
		return result
	}

	var (
		wg        sync.WaitGroup
		modelsErr error
		cliErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		models, err := s.client.FetchModelQuotas(ctx, token, account.ProjectID)
		if err != nil {
			modelsErr = err
			return
		}
		result.AntigravityModels = models
	}()
	go func() {
		defer wg.Done()
		quotas, err := s.client.FetchCLIQuotas(ctx, token, account.ProjectID)
		if err != nil {
			cliErr = err
			return
		}
		result.GeminiCLIQuota = quotas
	}()
	wg.Wait()

	if modelsErr != nil {
		s.log.Warn("Antigravity models fetch failed",
			zap.Int("account_index", index),
			zap.Error(modelsErr))
		result.Errors = append(result.Errors, fmt.Sprintf("Antigravity models: %v", modelsErr))
	}
	if cliErr != nil {
		s.log.Warn("Gemini CLI quota fetch failed",
			zap.Int("account_index", index),
			zap.Error(cliErr))
		result.Errors = append(result.Errors, fmt.Sprintf("Gemini CLI quota: %v", cliErr))
	}
	return result
}

// summarize folds per-account results into the cross-account view.
// Only entries with a positive remaining percentage count as
// available; disabled accounts contribute nothing.
func summarize(accounts []AccountQuota) map[string]*SummaryEntry {
	summary := map[string]*SummaryEntry{}
	observe := func(key string, q ModelQuota) {
		entry, ok := summary[key]
		if !ok {
			entry = &SummaryEntry{BestRemainingPct: -1}
			summary[key] = entry
		}
		if q.RemainingPct == nil || *q.RemainingPct <= 0 {
			return
		}
		if *q.RemainingPct > entry.BestRemainingPct {
			entry.BestRemainingPct = *q.RemainingPct
		}
		entry.AccountsAvailable++
	}

	for _, account := range accounts {
		if !account.Enabled {
			continue
		}
		for _, q := range account.AntigravityModels {
			observe(q.Model, q)
		}
		for _, q := range account.GeminiCLIQuota {
			observe("gemini-cli:"+q.Model, q)
		}
	}
	return summary
}

func resolveAccount(accounts []Account, identifier any) (int, error) {
	switch t := identifier.(type) {
	case float64:
		return checkIndex(int(t), len(accounts))
	case int:
		return checkIndex(t, len(accounts))
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed != "" && isDigits(trimmed) {
			index, err := strconv.Atoi(trimmed)
			if err != nil {
				return 0, fmt.Errorf("invalid account index %q", trimmed)
			}
			return checkIndex(index, len(accounts))
		}
		for i, account := range accounts {
			if strings.EqualFold(account.Email, trimmed) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("account not found: %s", trimmed)
	default:
		return 0, fmt.Errorf("invalid account identifier %v", identifier)
	}
}

func checkIndex(index, count int) (int, error) {
	if index < 0 || index >= count {
		return 0, fmt.Errorf("account index %d out of range [0,%d)", index, count)
	}
	return index, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
