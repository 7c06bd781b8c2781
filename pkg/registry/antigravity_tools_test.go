package registry

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/misfitdev/quotascope/pkg/antigravity"
)

type stubAccounts struct {
	accounts []antigravity.Account
}

func (s stubAccounts) Load() ([]antigravity.Account, error) { return s.accounts, nil }

type stubQuotaClient struct{}

func (stubQuotaClient) RefreshToken(_ context.Context, refreshToken string) (string, error) {
	return "at-" + refreshToken, nil
}

func (stubQuotaClient) FetchModelQuotas(context.Context, string, string) ([]antigravity.ModelQuota, error) {
	fraction := 0.55
	pct := 55
	return []antigravity.ModelQuota{
		{Model: "sky-large", RemainingFraction: &fraction, RemainingPct: &pct},
	}, nil
}

func (stubQuotaClient) FetchCLIQuotas(context.Context, string, string) ([]antigravity.ModelQuota, error) {
	return []antigravity.ModelQuota{}, nil
}

func newStubService(accounts ...antigravity.Account) *antigravity.Service {
	return antigravity.NewService(stubAccounts{accounts: accounts}, stubQuotaClient{}, zap.NewNop())
}

func TestPopulateAntigravityTools_RegistersInOrder(t *testing.T) {
	reg := New()
	PopulateAntigravityTools(reg, newStubService())

	want := []string{"get_antigravity_quota", "get_antigravity_account_quota"}
	tools := reg.List()
	if len(tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(tools))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Fatalf("tool %d: expected %s, got %s", i, name, tools[i].Name)
		}
	}
}

func TestGetAntigravityQuota_ReturnsSnapshot(t *testing.T) {
	reg := New()
	PopulateAntigravityTools(reg, newStubService(
		antigravity.Account{Email: "a@example.com", RefreshToken: "rt-a"},
	))

	got, err := reg.Call(context.Background(), "get_antigravity_quota", map[string]any{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	snapshot, ok := got.(*antigravity.Snapshot)
	if !ok {
		t.Fatalf("expected *antigravity.Snapshot, got %T", got)
	}
	if len(snapshot.Accounts) != 1 || snapshot.Accounts[0].Email != "a@example.com" {
		t.Fatalf("unexpected accounts: %+v", snapshot.Accounts)
	}
	entry, ok := snapshot.Summary["sky-large"]
	if !ok {
		t.Fatalf("expected sky-large in summary, got %+v", snapshot.Summary)
	}
	if entry.BestRemainingPct != 55 || entry.AccountsAvailable != 1 {
		t.Fatalf("unexpected summary entry: %+v", entry)
	}
}

func TestGetAntigravityAccountQuota_RequiresAccount(t *testing.T) {
	reg := New()
	PopulateAntigravityTools(reg, newStubService(
		antigravity.Account{Email: "a@example.com", RefreshToken: "rt-a"},
	))

	for name, args := range map[string]map[string]any{
		"missing": {},
		"null":    {"account": nil},
	} {
		_, err := reg.Call(context.Background(), "get_antigravity_account_quota", args)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if err.Error() != "account is required" {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
	}
}

func TestGetAntigravityAccountQuota_ByEmail(t *testing.T) {
	reg := New()
	PopulateAntigravityTools(reg, newStubService(
		antigravity.Account{Email: "a@example.com", RefreshToken: "rt-a"},
		antigravity.Account{Email: "b@example.com", RefreshToken: "rt-b"},
	))

	got, err := reg.Call(context.Background(), "get_antigravity_account_quota", map[string]any{
		"account": "b@example.com",
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	quota, ok := got.(*antigravity.AccountQuota)
	if !ok {
		t.Fatalf("expected *antigravity.AccountQuota, got %T", got)
	}
	if quota.AccountIndex != 1 || quota.Email != "b@example.com" {
		t.Fatalf("unexpected account: %+v", quota)
	}
}
