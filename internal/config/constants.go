package config

import "time"

// Deployment constants. The flow only ever pays into this network, token and
// recipient; none of them are user-configurable.
const (
	TargetChainID        = int64(80002) // 0x13882
	TargetChainName      = "Polygon Amoy Testnet"
	TargetCurrencyName   = "POL"
	TargetCurrencySymbol = "POL"
	TargetDecimals       = 18
	TargetRPCURL         = "https://rpc-amoy.maticvigil.com/"
	TargetExplorerURL    = "https://amoy.polygonscan.com/"

	// TokenContract is the DBC ERC-20 contract deposits are paid in.
	TokenContract = "0x462A2aCb9128734770A3bd3271276966ad6fc22C"
	TokenSymbol   = "DBC"

	// RecipientAddress receives every deposit. The same address also appears
	// all-lowercase in older deployments; see VerifyRecipientChecksum.
	RecipientAddress = "0xAc96CEaf54EB9511a6664806f2e0649EA02c2fD7"
)

// Backend base URLs, selected by the api_env setting.
const (
	BackendURLLocal      = "http://54.172.255.164"
	BackendURLProduction = "https://thepowerplay11-env.eba-ev2x8aa4.ap-south-1.elasticbeanstalk.com"
)

// Gas settings. The native path pins both values; the token path estimates
// and falls back to GasLimitERC20Transfer when the node cannot simulate.
const (
	GasLimitNativeTransfer = uint64(21_000)
	GasPriceNativeGwei     = int64(5)
	GasLimitERC20Transfer  = uint64(60_000)
)

// Timeouts. Provider calls themselves are never bounded: a wallet prompt may
// wait on a human indefinitely.
const (
	RPCSelectTimeout  = 10 * time.Second
	ProviderProbe     = 3 * time.Second
	BackendTimeout    = 30 * time.Second
	ReceiptPollPeriod = 2 * time.Second
)
