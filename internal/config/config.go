package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	defaultAPIEnv      = "production"
	defaultProvider    = "local"
	defaultProviderURL = "http://127.0.0.1:1248"
	defaultAlgorithm   = "fastest"
	defaultLogLevel    = "info"

	configFile   = "config.json"
	walletsFile  = "wallets.json"
	networksFile = "networks.json"

	envPrefix = "W3PAY"
)

var validate = validator.New()

// Load reads config from dir (or creates defaults). dir defaults to ~/.w3pay.
// Every key can be overridden from the environment, e.g. W3PAY_API_ENV=local.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3pay")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Provider == "remote" && c.ProviderURL == "" {
		return fmt.Errorf("invalid config: provider_url is required for the remote provider")
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Set updates a single key by its config name, as used by `w3pay config set`.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_env":
		c.APIEnv = value
	case "api_token":
		c.APIToken = value
	case "backend_url":
		c.BackendOverride = value
	case "provider":
		c.Provider = value
	case "provider_url":
		c.ProviderURL = value
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_algorithm":
		c.RPCAlgorithm = value
	case "log_level":
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.Validate()
}

// BackendURL returns the REST base URL: backend_url when set, otherwise the
// one for the configured environment.
func (c *Config) BackendURL() string {
	if c.BackendOverride != "" {
		return c.BackendOverride
	}
	if c.APIEnv == "local" {
		return BackendURLLocal
	}
	return BackendURLProduction
}

// AddRPC adds a custom RPC URL for a chain id.
func (c *Config) AddRPC(chainID int64, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	key := strconv.FormatInt(chainID, 10)
	if slices.Contains(c.CustomRPCs[key], url) {
		return fmt.Errorf("RPC %s already exists for chain %d", url, chainID)
	}
	c.CustomRPCs[key] = append(c.CustomRPCs[key], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain id.
func (c *Config) RemoveRPC(chainID int64, url string) error {
	key := strconv.FormatInt(chainID, 10)
	rpcs := c.CustomRPCs[key]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %d", url, chainID)
	}
	c.CustomRPCs[key] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain id.
func (c *Config) GetRPCs(chainID int64) []string {
	return c.CustomRPCs[strconv.FormatInt(chainID, 10)]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where the local wallet keeps its wallet list.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// LoadNetworks reads networks.json. A missing file yields zero values.
func (c *Config) LoadNetworks() (int64, []chain.Network, error) {
	nf, err := loadJSON[NetworksFile](filepath.Join(c.configDir, networksFile))
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s: %w", networksFile, err)
	}
	return nf.ActiveChainID, nf.Networks, nil
}

// SaveNetworks writes networks.json.
func (c *Config) SaveNetworks(activeChainID int64, networks []chain.Network) error {
	return saveJSON(filepath.Join(c.configDir, networksFile), &NetworksFile{
		ActiveChainID: activeChainID,
		Networks:      networks,
	})
}

// TargetNetwork returns the descriptor of the network every payment must run on.
func TargetNetwork() chain.Network {
	return chain.Network{
		ChainID: TargetChainID,
		Name:    TargetChainName,
		NativeCurrency: chain.Currency{
			Name:     TargetCurrencyName,
			Symbol:   TargetCurrencySymbol,
			Decimals: TargetDecimals,
		},
		RPCURLs:     []string{TargetRPCURL},
		ExplorerURL: TargetExplorerURL,
	}
}

// --- helpers ---

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_env", defaultAPIEnv)
	v.SetDefault("api_token", "")
	v.SetDefault("backend_url", "")
	v.SetDefault("provider", defaultProvider)
	v.SetDefault("provider_url", defaultProviderURL)
	v.SetDefault("default_wallet", "")
	v.SetDefault("rpc_algorithm", defaultAlgorithm)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("custom_rpcs", map[string][]string{})
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
