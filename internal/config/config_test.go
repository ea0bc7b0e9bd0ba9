package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.APIEnv)
	assert.Equal(t, "local", cfg.Provider)
	assert.Equal(t, "http://127.0.0.1:1248", cfg.ProviderURL)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.BackendURLProduction, cfg.BackendURL())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.APIEnv = "local"
	cfg.DefaultWallet = "mywallet"
	cfg.RPCAlgorithm = "round-robin"

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "local", reloaded.APIEnv)
	assert.Equal(t, "mywallet", reloaded.DefaultWallet)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
	assert.Equal(t, config.BackendURLLocal, reloaded.BackendURL())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	cfg.LogLevel = "warn"
	require.NoError(t, cfg.Save())

	t.Setenv("W3PAY_LOG_LEVEL", "debug")
	t.Setenv("W3PAY_PROVIDER", "remote")

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", reloaded.LogLevel)
	assert.Equal(t, "remote", reloaded.Provider)
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"api_env":"staging"}`), 0o600))

	_, err := config.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestBackendURLOverride(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("backend_url", "http://127.0.0.1:8080"))
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BackendURL())

	assert.Error(t, cfg.Set("backend_url", "not a url"))
}

func TestBackendURLFromEnvironment(t *testing.T) {
	t.Setenv("W3PAY_BACKEND_URL", "http://staging.internal")
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "http://staging.internal", cfg.BackendURL())
}

func TestSetKnownKey(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("provider", "remote"))
	require.NoError(t, cfg.Set("provider_url", "http://127.0.0.1:1248"))
	assert.Equal(t, "remote", cfg.Provider)
}

func TestSetInvalidValueErrors(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, cfg.Set("rpc_algorithm", "random"))
}

func TestSetUnknownKeyErrors(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, cfg.Set("price_currency", "USD"))
}

func TestRemoteProviderNeedsURL(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.ProviderURL = ""
	assert.Error(t, cfg.Set("provider", "remote"))
}

func TestAddCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC(80002, "https://custom.amoy.rpc"))
	assert.Contains(t, cfg.GetRPCs(80002), "https://custom.amoy.rpc")
}

func TestAddDuplicateRPCErrors(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	cfg.AddRPC(80002, "https://custom.amoy.rpc") //nolint:errcheck
	assert.Error(t, cfg.AddRPC(80002, "https://custom.amoy.rpc"))
}

func TestRemoveCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	cfg.AddRPC(80002, "https://rpc1.amoy") //nolint:errcheck
	cfg.AddRPC(80002, "https://rpc2.amoy") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC(80002, "https://rpc1.amoy"))

	rpcs := cfg.GetRPCs(80002)
	assert.NotContains(t, rpcs, "https://rpc1.amoy")
	assert.Contains(t, rpcs, "https://rpc2.amoy")
}

func TestRemoveNonExistentRPCErrors(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	assert.Error(t, cfg.RemoveRPC(80002, "https://nonexistent.rpc"))
}

func TestCustomRPCsSurviveReload(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.AddRPC(80002, "https://rpc1.amoy"))
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rpc1.amoy"}, reloaded.GetRPCs(80002))
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}

func TestConfigDir(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Provider)
}

func TestNetworksRoundTrip(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	active, empty, err := cfg.LoadNetworks()
	require.NoError(t, err)
	assert.Zero(t, active)
	assert.Empty(t, empty)

	require.NoError(t, cfg.SaveNetworks(80002, []chain.Network{config.TargetNetwork()}))

	active, got, err := cfg.LoadNetworks()
	require.NoError(t, err)
	assert.Equal(t, int64(80002), active)
	require.Len(t, got, 1)
	assert.Equal(t, config.TargetNetwork(), got[0])
}

func TestTargetNetwork(t *testing.T) {
	n := config.TargetNetwork()
	assert.Equal(t, int64(80002), n.ChainID)
	assert.Equal(t, "0x13882", n.HexChainID())
	assert.Equal(t, "POL", n.NativeCurrency.Symbol)
	assert.Equal(t, 18, n.NativeCurrency.Decimals)
	assert.Equal(t, []string{"https://rpc-amoy.maticvigil.com/"}, n.RPCURLs)
}

func TestRecipientChecksumIsValid(t *testing.T) {
	require.NoError(t, config.VerifyRecipientChecksum())
}

func TestRecipientCasingsResolveToSameAccount(t *testing.T) {
	lower := strings.ToLower(config.RecipientAddress)
	assert.Equal(t, config.RecipientAddress, config.ChecksumAddress(lower))
}

func TestChecksumAddressKnownVector(t *testing.T) {
	// EIP-55 reference vector.
	assert.Equal(t,
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		config.ChecksumAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
}
