package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Mohsinsiddi/w3pay/internal/backend"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/payment"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/rpc"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/Mohsinsiddi/w3pay/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// promptInput is where confirmations are read from.
var promptInput io.Reader = os.Stdin

var prompter *ui.Prompter

// terminalPrompter returns the prompter for promptInput. Every prompt in a
// run shares it so none of them loses buffered input.
func terminalPrompter(out io.Writer) *ui.Prompter {
	if prompter == nil || prompter.In != promptInput {
		prompter = &ui.Prompter{In: promptInput}
	}
	prompter.Out = out
	return prompter
}

// openKeystore returns the store for private keys: the OS keychain, or an
// encrypted file in the config dir where there is none.
var openKeystore = func() wallet.KeyStore {
	return wallet.OpenKeychain(cfg.Dir())
}

// newWalletManager creates a Manager backed by the config-dir JSON store.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeys(openKeystore()),
	)
}

// newSelector builds the RPC selector the local wallet reads through,
// including any custom RPCs from config.
func newSelector() (*rpc.Selector, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}
	s := rpc.NewSelector(algo, config.RPCSelectTimeout)
	for key, urls := range cfg.CustomRPCs {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("custom_rpcs: bad chain id %q", key)
		}
		s.AddURLs(id, urls...)
	}
	return s, nil
}

// newDetector returns the wallet detection configured by provider and
// provider_url. The local wallet shows its prompts on out.
func newDetector(out io.Writer) (payment.Detector, error) {
	selector, err := newSelector()
	if err != nil {
		return nil, err
	}
	opts := provider.DetectOptions{
		Kind:         cfg.Provider,
		RemoteURL:    cfg.ProviderURL,
		ProbeTimeout: config.ProviderProbe,
	}
	if cfg.Provider != provider.KindRemote {
		opts.Local = provider.LocalOptions{
			Wallets:  newWalletManager(),
			Approver: newTerminalApprover(out, terminalPrompter(out), assumeYes),
			Networks: cfg,
			Selector: selector,
		}
	}
	return func(ctx context.Context) (provider.Provider, error) {
		return provider.Detect(ctx, opts)
	}, nil
}

func newNotifier() *backend.Client {
	return backend.NewClient(backend.Options{
		BaseURL: cfg.BackendURL(),
		Token:   cfg.APIToken,
		Timeout: config.BackendTimeout,
	})
}

// flowOptions selects what a controller pays and where it reports.
type flowOptions struct {
	kind  payment.AssetKind
	route backend.Route
	wait  bool
}

func newController(out io.Writer, fo flowOptions) (*payment.Controller, error) {
	detect, err := newDetector(out)
	if err != nil {
		return nil, err
	}
	return payment.NewController(payment.Options{
		Detect:         detect,
		Notifier:       newNotifier(),
		Target:         config.TargetNetwork(),
		TokenContract:  common.HexToAddress(config.TokenContract),
		TokenSymbol:    config.TokenSymbol,
		Recipient:      common.HexToAddress(config.RecipientAddress),
		Kind:           fo.kind,
		Route:          fo.route,
		WaitForReceipt: fo.wait,
		ReceiptPoll:    config.ReceiptPollPeriod,
	})
}

// connectController builds a controller and connects it, showing a spinner
// unless the local wallet may need the terminal for a prompt.
func connectController(cmd *cobra.Command, fo flowOptions) (*payment.Controller, error) {
	out := cmd.OutOrStdout()
	ctrl, err := newController(out, fo)
	if err != nil {
		return nil, err
	}

	var spin *ui.Spinner
	if cfg.Provider == provider.KindRemote {
		spin = ui.NewSpinnerTo(cmd.ErrOrStderr(), "Waiting for wallet at "+cfg.ProviderURL+"...")
		spin.Start()
	}
	err = ctrl.Connect(cmd.Context())
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return nil, flowFailed(err)
	}
	return ctrl, nil
}
