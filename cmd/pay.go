package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Mohsinsiddi/w3pay/internal/backend"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/payment"
	"github.com/Mohsinsiddi/w3pay/internal/token"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/spf13/cobra"
)

var (
	depositNative bool
	depositWait   bool
	sendWait      bool
)

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Deposit DBC into your account",
	Long: `Transfer <amount> DBC from the connected account to the deposit address
and report the transaction hash to the backend.

  w3pay deposit 2.5
  w3pay deposit 0.1 --native   # pay in POL instead of DBC
  w3pay deposit 10 --wait      # wait for the transaction to be mined`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := payment.Token
		if depositNative {
			kind = payment.Native
		}
		return runTransfer(cmd, args[0], flowOptions{kind: kind, route: backend.RouteDeposit, wait: depositWait})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <amount>",
	Short: "Send POL to the deposit address",
	Long: `Transfer <amount> POL from the connected account to the deposit address
with fixed gas (21000 at 5 gwei) and report it on the send route.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, args[0], flowOptions{kind: payment.Native, route: backend.RouteSend, wait: sendWait})
	},
}

func runTransfer(cmd *cobra.Command, amount string, fo flowOptions) error {
	ctrl, err := connectController(cmd, fo)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	target := config.TargetNetwork()

	symbol := config.TokenSymbol
	if fo.kind == payment.Native {
		symbol = target.NativeCurrency.Symbol
	}
	fmt.Fprintln(out, ui.Info(fmt.Sprintf("Paying %s %s to %s on %s",
		amount, symbol, ui.TruncateAddr(config.RecipientAddress), target.Name)))

	outcome, err := ctrl.Submit(cmd.Context(), amount)
	if err != nil {
		return flowFailed(err)
	}
	printOutcome(out, outcome, symbol)
	printBalances(out, ctrl.Balances())
	return nil
}

func printOutcome(out io.Writer, o *payment.Outcome, symbol string) {
	hash := o.Receipt.TxHash
	pairs := [][2]string{
		{"Amount", o.Request.Amount() + " " + symbol},
		{"Recipient", o.Request.To().Hex()},
		{"Hash", hash},
	}
	if link := config.TargetNetwork().TxURL(hash); link != "" {
		pairs = append(pairs, [2]string{"Explorer", link})
	}
	pairs = append(pairs, [2]string{"Status", o.Receipt.Status.String()})
	if o.Ack != nil {
		pairs = append(pairs, [2]string{"Backend", "HTTP " + strconv.Itoa(o.Ack.StatusCode)})
	}
	fmt.Fprintln(out, ui.KeyValueBlock("Transaction sent", pairs))

	switch {
	case o.ReceiptErr != nil && errors.Is(o.ReceiptErr, token.ErrTransferRejected):
		fmt.Fprintln(out, ui.Err("The transaction reverted on chain."))
	case o.ReceiptErr != nil:
		fmt.Fprintln(out, ui.Warn("Stopped waiting for the receipt; the transaction may still be mined."))
	case o.Receipt.Status == token.StatusConfirmed:
		fmt.Fprintln(out, ui.Success("Transaction mined."))
	}
	if o.NotifyErr != nil {
		fmt.Fprintln(out, ui.Warn(payment.StatusMessage(o.NotifyErr)))
		fmt.Fprintln(out, ui.Hint("Keep the hash above; the backend has no record of this transfer."))
	}
}

func init() {
	depositCmd.Flags().BoolVar(&depositNative, "native", false, "pay in POL instead of DBC")
	depositCmd.Flags().BoolVar(&depositWait, "wait", false, "wait for the transaction to be mined")
	sendCmd.Flags().BoolVar(&sendWait, "wait", false, "wait for the transaction to be mined")
}
