package antigravity

import (
	"encoding/json"
	"fmt"
	"os"
)

// Account is one stored Antigravity login.
type Account struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ProjectID    string `json:"projectId,omitempty"`
	Enabled      *bool  `json:"enabled,omitempty"`
}

// IsEnabled reports whether the account takes part in quota fetches.
// Accounts are enabled unless the file marks them otherwise.
func (a Account) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Store reads the accounts file. The file is read on every load so
// account edits take effect without restarting the server.
type Store struct {
	path string
}

// NewStore builds a store for the given accounts file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads and parses the accounts file. Both a bare array and an
// {"accounts": [...]} wrapper are accepted.
func (s *Store) Load() ([]Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	accounts, err := parseAccounts(data)
	if err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured in %s", s.path)
	}
	return accounts, nil
}

func parseAccounts(data []byte) ([]Account, error) {
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err == nil {
		return accounts, nil
	}

	var wrapper struct {
		Accounts []Account `json:"accounts"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Accounts, nil
}
