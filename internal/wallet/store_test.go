package wallet_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/w3pay/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStoreMissingFile(t *testing.T) {
	accounts, err := wallet.NewJSONStore(filepath.Join(t.TempDir(), "wallets.json")).Load()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := wallet.NewJSONStore(path).Load()
	assert.Error(t, err)

	m := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeys(wallet.NewMemoryKeys()))
	_, err = m.AddPayout("treasury", treasury)
	assert.Error(t, err)
	assert.Empty(t, m.List())
}

func TestAccountsSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")
	keys := wallet.NewMemoryKeys()
	open := func() *wallet.Manager {
		return wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeys(keys))
	}

	first := open()
	_, err := first.ImportKey("depositor", depositorKey)
	require.NoError(t, err)
	_, err = first.AddPayout("treasury", treasury)
	require.NoError(t, err)
	require.NoError(t, first.SetDefault("depositor"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := open()
	acct, err := second.Get("depositor")
	require.NoError(t, err)
	assert.Equal(t, depositor, acct.Address)
	assert.True(t, acct.IsDefault)

	payout, err := second.Get("treasury")
	require.NoError(t, err)
	assert.Equal(t, wallet.KindPayout, payout.Kind)
	assert.Equal(t, treasury, payout.Address)

	s, err := second.Signer(depositor)
	require.NoError(t, err)
	assert.Equal(t, depositor, s.Address())
}

func TestJSONStoreNeverHoldsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	m := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeys(wallet.NewMemoryKeys()))
	_, err := m.ImportKey("depositor", depositorKey)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), depositorKey[2:])
	assert.Contains(t, string(data), `"kind": "signing"`)
}
