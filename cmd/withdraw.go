package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/w3pay/internal/backend"
	"github.com/Mohsinsiddi/w3pay/internal/payment"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/spf13/cobra"
)

var withdrawTo string

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Ask the backend to pay out DBC from your platform balance",
	Long: `Request a withdrawal of <amount> from your platform balance. The payout
goes to the connected account unless --to names another address or a
saved account. Nothing is signed; the backend sends the funds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := connectController(cmd, flowOptions{kind: payment.Token, route: backend.RouteDeposit})
		if err != nil {
			return err
		}
		recipient, err := withdrawRecipient(ctrl, withdrawTo)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !assumeYes && !terminalPrompter(out).Confirm(
			fmt.Sprintf("Withdraw %s to %s?", args[0], ui.TruncateAddr(recipient))) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}

		ack, err := ctrl.Withdraw(cmd.Context(), args[0], recipient)
		if err != nil {
			return flowFailed(err)
		}
		fmt.Fprintln(out, ui.Success(ctrl.Status()))
		fmt.Fprintln(out, ui.Meta("Backend answered HTTP "+strconv.Itoa(ack.StatusCode)+", request "+ack.RequestID))
		printBalances(out, ctrl.Balances())
		return nil
	},
}

// withdrawRecipient resolves --to: empty means the session account, and a
// name that is not an address is looked up among the wallet's accounts.
func withdrawRecipient(ctrl *payment.Controller, to string) (string, error) {
	switch {
	case to == "":
		session, _ := ctrl.Session()
		return session.Account.Hex(), nil
	case strings.HasPrefix(to, "0x") || strings.HasPrefix(to, "0X"):
		return to, nil
	}
	acct, err := newWalletManager().Get(to)
	if err != nil {
		return "", fmt.Errorf("--to: %w", err)
	}
	return acct.Address.Hex(), nil
}

func init() {
	withdrawCmd.Flags().StringVar(&withdrawTo, "to", "", "payout address or account name (default: connected account)")
}
