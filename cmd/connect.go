package cmd

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3pay/internal/backend"
	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/payment"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet and check it is on Polygon Amoy",
	Long: `Detect the configured wallet, make sure it is on Polygon Amoy and ask it
for an account. A wallet on another network is asked to switch, or to add
the network when it does not know it; run connect again afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := connectController(cmd, flowOptions{kind: payment.Token, route: backend.RouteDeposit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		session, _ := ctrl.Session()
		fmt.Fprintln(out, ui.Banner(config.TargetChainName))
		fmt.Fprintln(out, ui.KeyValueBlock("Wallet connected", [][2]string{
			{"Account", session.Account.Hex()},
			{"Network", fmt.Sprintf("%s (%d)", config.TargetChainName, session.ChainID)},
			{"Provider", cfg.Provider},
		}))
		printBalances(out, ctrl.Balances())
		fmt.Fprintln(out, ui.Success(ctrl.Status()))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the connected account's POL and DBC balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := connectController(cmd, flowOptions{kind: payment.Token, route: backend.RouteDeposit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		session, _ := ctrl.Session()
		fmt.Fprintln(out, ui.Meta("Account "+session.Account.Hex()))
		printBalances(out, ctrl.Balances())
		return nil
	},
}

// printBalances shows both balances; one that could not be read is shown
// as unavailable.
func printBalances(out io.Writer, b payment.Balances) {
	amount := func(raw *big.Int) string {
		if raw == nil {
			return "unavailable"
		}
		return chain.FromBaseUnits(raw, chain.Decimals)
	}
	pairs := [][2]string{
		{config.TargetCurrencySymbol, amount(b.Native)},
		{config.TokenSymbol, amount(b.Token)},
	}
	if !b.UpdatedAt.IsZero() {
		pairs = append(pairs, [2]string{"Updated", b.UpdatedAt.Format(time.TimeOnly)})
	}
	fmt.Fprintln(out, ui.KeyValueBlock("Balances", pairs))
}
