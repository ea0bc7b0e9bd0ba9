package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/logging"
	"github.com/Mohsinsiddi/w3pay/internal/payment"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3pay/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir    string
	cfg       *config.Config
	verbose   bool
	assumeYes bool
	apiEnv    string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3pay",
	Short: "Pay DBC deposits from your wallet on Polygon Amoy",
	Long: `w3pay connects a wallet, makes sure it is on Polygon Amoy (chain 80002),
sends DBC or POL to the deposit address and tells the backend about it.

The wallet is either the local keystore wallet (provider=local, the default)
or any wallet that serves JSON-RPC (provider=remote, provider_url=...).

Global flag --env picks the backend for a single invocation. Persist with:
  w3pay config set api_env local`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if apiEnv != "" {
			cfg.APIEnv = apiEnv
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		return logging.Setup(os.Stderr, cfg.LogLevel, verbose)
	},
}

// Execute runs the root command. Ctrl-C cancels whatever the wallet or the
// backend is waiting on.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		stop()
		os.Exit(1)
	}
}

// renderError turns a flow error into the line the user sees. Usage errors
// from cobra are shown as they are.
func renderError(err error) string {
	log.Debug().Err(err).Msg("command failed")
	if errors.Is(err, context.Canceled) {
		return ui.Warn("Interrupted.")
	}
	var flowErr *flowError
	if errors.As(err, &flowErr) {
		return ui.Err(payment.StatusMessage(flowErr.err))
	}
	return ui.Err(err.Error())
}

// flowError marks an error that came out of the payment flow, so it is
// presented as a status message rather than raw text.
type flowError struct{ err error }

func (e *flowError) Error() string { return e.err.Error() }
func (e *flowError) Unwrap() error { return e.err }

func flowFailed(err error) error {
	if err == nil {
		return nil
	}
	return &flowError{err: err}
}

func init() {
	// W3PAY_CONFIG_DIR overrides the --config default.
	if envDir := os.Getenv("W3PAY_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3pay)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve local wallet prompts without asking")
	rootCmd.PersistentFlags().StringVar(&apiEnv, "env", "", "backend environment for this run: local|production")

	rootCmd.AddCommand(
		connectCmd,
		depositCmd,
		sendCmd,
		withdrawCmd,
		balanceCmd,
		signCmd,
		verifyCmd,
		networkCmd,
		walletCmd,
		configCmd,
	)
}
