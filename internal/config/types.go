package config

import "github.com/Mohsinsiddi/w3pay/internal/chain"

// Config holds all w3pay configuration.
type Config struct {
	APIEnv          string              `json:"api_env"        mapstructure:"api_env"        validate:"oneof=local production"`
	APIToken        string              `json:"api_token"      mapstructure:"api_token"`
	BackendOverride string              `json:"backend_url"    mapstructure:"backend_url"    validate:"omitempty,url"` // overrides api_env
	Provider        string              `json:"provider"       mapstructure:"provider"       validate:"oneof=local remote"`
	ProviderURL     string              `json:"provider_url"   mapstructure:"provider_url"   validate:"omitempty,url"`
	DefaultWallet   string              `json:"default_wallet" mapstructure:"default_wallet"`
	RPCAlgorithm    string              `json:"rpc_algorithm"  mapstructure:"rpc_algorithm"  validate:"oneof=fastest round-robin failover"` // "fastest" | "round-robin" | "failover"
	LogLevel        string              `json:"log_level"      mapstructure:"log_level"      validate:"oneof=debug info warn error"`
	CustomRPCs      map[string][]string `json:"custom_rpcs"    mapstructure:"custom_rpcs"` // keyed by decimal chain id

	// internal: config dir path used for Save()
	configDir string
}

// NetworksFile is the structure of networks.json: the local wallet's selected
// chain and the networks it learned through wallet_addEthereumChain.
type NetworksFile struct {
	ActiveChainID   int64               `json:"active_chain_id,omitempty"`
	Networks        []chain.Network     `json:"networks"`
}
