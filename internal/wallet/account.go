// Package wallet holds the accounts of the local wallet. Account metadata is
// kept in a Store and private keys in a KeyStore, normally the OS keychain.
package wallet

import (
	"cmp"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind says what an account may be used for.
type Kind string

const (
	// KindSigning accounts have a key and can be connected.
	KindSigning Kind = "signing"
	// KindPayout accounts are saved addresses, usable as payout targets only.
	KindPayout Kind = "payout"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrInvalidKey      = errors.New("invalid private key")
	ErrCannotSign      = errors.New("account has no private key")
)

// Account is one named entry of the wallet.
type Account struct {
	Name      string         `json:"name"`
	Address   common.Address `json:"address"`
	Kind      Kind           `json:"kind"`
	IsDefault bool           `json:"is_default,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CanSign reports whether the account has a key in the keystore.
func (a *Account) CanSign() bool { return a.Kind == KindSigning }

// keyRef is where the key of the named account lives in the keystore.
func keyRef(name string) string { return keychainService + "." + name }

// Manager is the account book of the local wallet.
type Manager struct {
	mu       sync.Mutex
	store    Store
	keys     KeyStore
	accounts map[string]*Account
	loaded   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets where account metadata is persisted. The default keeps it in
// memory.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithKeys sets the keystore. The default is the OS keychain.
func WithKeys(k KeyStore) Option {
	return func(m *Manager) { m.keys = k }
}

// NewManager returns an empty manager; accounts are read from the store on
// first use.
func NewManager(opts ...Option) *Manager {
	m := &Manager{store: &memStore{}, accounts: make(map[string]*Account)}
	for _, opt := range opts {
		opt(m)
	}
	if m.keys == nil {
		m.keys = OpenKeychain("")
	}
	return m
}

// ImportKey adds a signing account for a hex private key, with or without a
// 0x prefix.
func (m *Manager) ImportKey(name, hexKey string) (*Account, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return m.addSigning(name, key)
}

// Generate creates an account with a fresh key and returns the key as 0x hex
// so it can be shown once.
func (m *Manager) Generate(name string) (*Account, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, "", fmt.Errorf("generating key: %w", err)
	}
	acct, err := m.addSigning(name, key)
	if err != nil {
		return nil, "", err
	}
	return acct, encodeKey(key), nil
}

// AddPayout saves addr under name. Payout accounts never sign.
func (m *Manager) AddPayout(name string, addr common.Address) (*Account, error) {
	acct := &Account{Name: name, Address: addr, Kind: KindPayout}
	if err := m.insert(acct, nil); err != nil {
		return nil, err
	}
	return acct, nil
}

func (m *Manager) addSigning(name string, key *ecdsa.PrivateKey) (*Account, error) {
	acct := &Account{Name: name, Address: crypto.PubkeyToAddress(key.PublicKey), Kind: KindSigning}
	if err := m.insert(acct, key); err != nil {
		return nil, err
	}
	return acct, nil
}

func (m *Manager) insert(acct *Account, key *ecdsa.PrivateKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return err
	}
	if _, ok := m.accounts[acct.Name]; ok {
		return fmt.Errorf("%q: %w", acct.Name, ErrAccountExists)
	}
	if key != nil {
		if err := m.keys.Put(keyRef(acct.Name), key); err != nil {
			return fmt.Errorf("storing key: %w", err)
		}
	}
	acct.CreatedAt = time.Now().UTC().Truncate(time.Second)
	m.accounts[acct.Name] = acct
	return m.persist()
}

// ExportKey returns the private key of a signing account as 0x hex.
func (m *Manager) ExportKey(name string) (string, error) {
	acct, err := m.Get(name)
	if err != nil {
		return "", err
	}
	key, err := m.key(acct)
	if err != nil {
		return "", err
	}
	return encodeKey(key), nil
}

// Signer returns a signer for the account controlling addr.
func (m *Manager) Signer(addr common.Address) (*Signer, error) {
	acct, err := m.Lookup(addr)
	if err != nil {
		return nil, err
	}
	key, err := m.key(acct)
	if err != nil {
		return nil, err
	}
	if crypto.PubkeyToAddress(key.PublicKey) != acct.Address {
		return nil, fmt.Errorf("key for %q does not match %s", acct.Name, acct.Address.Hex())
	}
	return &Signer{address: acct.Address, key: key}, nil
}

func (m *Manager) key(acct *Account) (*ecdsa.PrivateKey, error) {
	if !acct.CanSign() {
		return nil, fmt.Errorf("%q: %w", acct.Name, ErrCannotSign)
	}
	return m.keys.Load(keyRef(acct.Name))
}

// Get returns the account called name.
func (m *Manager) Get(name string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return nil, err
	}
	acct, ok := m.accounts[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrAccountNotFound)
	}
	return acct, nil
}

// Lookup returns the account with address addr. Signing accounts win over
// payout entries for the same address.
func (m *Manager) Lookup(addr common.Address) (*Account, error) {
	var found *Account
	for _, acct := range m.List() {
		if acct.Address != addr {
			continue
		}
		if acct.CanSign() {
			return acct, nil
		}
		if found == nil {
			found = acct
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", addr.Hex(), ErrAccountNotFound)
	}
	return found, nil
}

// Remove deletes an account and its key.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return err
	}
	acct, ok := m.accounts[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrAccountNotFound)
	}
	if acct.CanSign() {
		if err := m.keys.Delete(keyRef(name)); err != nil {
			return fmt.Errorf("deleting key: %w", err)
		}
	}
	delete(m.accounts, name)
	return m.persist()
}

// List returns every account ordered by name. A store that cannot be read
// yields an empty list.
func (m *Manager) List() []*Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return nil
	}
	return m.sorted()
}

// Signing returns the accounts that can sign, the default one first.
func (m *Manager) Signing() []*Account {
	out := slices.DeleteFunc(m.List(), func(a *Account) bool { return !a.CanSign() })
	slices.SortStableFunc(out, func(a, b *Account) int {
		switch {
		case a.IsDefault == b.IsDefault:
			return 0
		case a.IsDefault:
			return -1
		}
		return 1
	})
	return out
}

// SetDefault makes name the account offered first on connect.
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return err
	}
	if _, ok := m.accounts[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrAccountNotFound)
	}
	for _, acct := range m.accounts {
		acct.IsDefault = acct.Name == name
	}
	return m.persist()
}

// Default returns the default account, or the only account when there is
// just one. It returns nil otherwise.
func (m *Manager) Default() *Account {
	all := m.List()
	if i := slices.IndexFunc(all, func(a *Account) bool { return a.IsDefault }); i >= 0 {
		return all[i]
	}
	if len(all) == 1 {
		return all[0]
	}
	return nil
}

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	accounts, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	for _, acct := range accounts {
		m.accounts[acct.Name] = acct
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	return m.store.Save(m.sorted())
}

func (m *Manager) sorted() []*Account {
	out := make([]*Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		out = append(out, acct)
	}
	slices.SortFunc(out, func(a, b *Account) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func encodeKey(key *ecdsa.PrivateKey) string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(key))
}
