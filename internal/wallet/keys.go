package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	keychainService = "w3pay"

	// EnvKey supplies the private key for every signing account instead of the
	// keychain. Meant for CI and headless hosts.
	EnvKey = "W3PAY_KEY"
	// EnvKeyringPassword unlocks the file keyring without a prompt.
	EnvKeyringPassword = "W3PAY_KEYRING_PASSWORD"
)

var errKeychainUnavailable = errors.New("keychain unavailable")

// KeyStore keeps private keys under a reference.
type KeyStore interface {
	Put(ref string, key *ecdsa.PrivateKey) error
	Load(ref string) (*ecdsa.PrivateKey, error)
	Delete(ref string) error
}

// ParseKey decodes a hex private key. Surrounding space and a 0x prefix are
// ignored.
func ParseKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// Keychain keeps keys in the OS keychain, or in an encrypted file where there
// is none.
type Keychain struct {
	ring keyring.Keyring
}

// OpenKeychain opens the keychain. fileDir holds the encrypted file backend.
func OpenKeychain(fileDir string) *Keychain {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         filePassword,
	}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		if ring, err = keyring.Open(cfg); err != nil {
			return &Keychain{}
		}
	}
	return &Keychain{ring: ring}
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(EnvKeyringPassword); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

func (k *Keychain) Put(ref string, key *ecdsa.PrivateKey) error {
	if k.ring == nil {
		return errKeychainUnavailable
	}
	err := k.ring.Set(keyring.Item{
		Key:   ref,
		Data:  []byte(hex.EncodeToString(crypto.FromECDSA(key))),
		Label: "w3pay account key",
	})
	if err != nil {
		return fmt.Errorf("keychain: %w", err)
	}
	return nil
}

// Load returns the key stored under ref. W3PAY_KEY, when set, wins.
func (k *Keychain) Load(ref string) (*ecdsa.PrivateKey, error) {
	if env := os.Getenv(EnvKey); env != "" {
		return ParseKey(env)
	}
	if k.ring == nil {
		return nil, errKeychainUnavailable
	}
	item, err := k.ring.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("keychain %s: %w", ref, err)
	}
	return ParseKey(string(item.Data))
}

// Delete removes the key under ref. A missing key is not an error.
func (k *Keychain) Delete(ref string) error {
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(ref)
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("keychain: %w", err)
}

// MemoryKeys is a KeyStore that lives in memory.
type MemoryKeys struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func NewMemoryKeys() *MemoryKeys {
	return &MemoryKeys{keys: make(map[string][]byte)}
}

func (k *MemoryKeys) Put(ref string, key *ecdsa.PrivateKey) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[ref] = crypto.FromECDSA(key)
	return nil
}

func (k *MemoryKeys) Load(ref string) (*ecdsa.PrivateKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	raw, ok := k.keys[ref]
	if !ok {
		return nil, fmt.Errorf("no key stored for %s", ref)
	}
	return crypto.ToECDSA(raw)
}

func (k *MemoryKeys) Delete(ref string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, ref)
	return nil
}
