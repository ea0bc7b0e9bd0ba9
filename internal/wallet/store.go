package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists account metadata. Keys are never part of it.
type Store interface {
	Load() ([]*Account, error)
	Save([]*Account) error
}

type memStore struct {
	accounts []*Account
}

func (s *memStore) Load() ([]*Account, error) { return s.accounts, nil }

func (s *memStore) Save(accounts []*Account) error {
	s.accounts = accounts
	return nil
}

// JSONStore keeps accounts in a JSON file.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load returns no accounts when the file does not exist yet.
func (s *JSONStore) Load() ([]*Account, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var accounts []*Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return accounts, nil
}

// Save replaces the file through a rename so a failed write leaves the old
// contents in place.
func (s *JSONStore) Save(accounts []*Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".accounts-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
