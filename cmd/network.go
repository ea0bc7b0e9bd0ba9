package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/network"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Inspect the payment network and the wallet's networks",
}

var networkInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show where payments go",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n := config.TargetNetwork()

		checksum := ui.StyleSuccess.Render("valid EIP-55")
		if err := config.VerifyRecipientChecksum(); err != nil {
			checksum = ui.StyleError.Render(err.Error())
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Payment network", [][2]string{
			{"Network", n.Name},
			{"Chain ID", fmt.Sprintf("%d (%s)", n.ChainID, n.HexChainID())},
			{"Currency", fmt.Sprintf("%s, %d decimals", n.NativeCurrency.Symbol, n.NativeCurrency.Decimals)},
			{"RPC", n.RPCURLs[0]},
			{"Explorer", n.ExplorerURL},
			{"Token", config.TokenSymbol + " " + config.TokenContract},
			{"Recipient", config.RecipientAddress},
			{"Checksum", checksum},
			{"Backend", cfg.BackendURL() + " (" + cfg.APIEnv + ")"},
		}))
		if custom := cfg.GetRPCs(n.ChainID); len(custom) > 0 {
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d custom RPC(s) configured for chain %d", len(custom), n.ChainID)))
		}
		return nil
	},
}

var networkEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Ask the wallet to switch to Polygon Amoy, adding it if needed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		detect, err := newDetector(out)
		if err != nil {
			return err
		}
		p, err := detect(cmd.Context())
		if err != nil {
			return flowFailed(err)
		}

		target := config.TargetNetwork()
		err = network.NewGuard(provider.NewAdapter(p), target).Ensure(cmd.Context())
		var mismatch *network.MismatchError
		switch {
		case err == nil:
			fmt.Fprintln(out, ui.Success("Wallet is on "+target.Name+"."))
			return nil
		case errors.As(err, &mismatch) && mismatch.Remedy == network.RemedySwitched:
			fmt.Fprintln(out, ui.Success("Wallet switched to "+target.Name+"."))
			return nil
		case errors.As(err, &mismatch) && mismatch.Remedy == network.RemedyAdded:
			fmt.Fprintln(out, ui.Success(target.Name+" added to the wallet."))
			fmt.Fprintln(out, ui.Hint("Switch to it in the wallet, then run: w3pay network ensure"))
			return nil
		default:
			return flowFailed(err)
		}
	},
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the networks the local wallet knows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		active, added, err := cfg.LoadNetworks()
		if err != nil {
			return err
		}
		reg := chain.NewRegistry(added...)
		if active == 0 {
			active = provider.DefaultChainID
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Chain ID", Width: 9},
			{Title: "Name", Width: 24},
			{Title: "Currency", Width: 9},
			{Title: "Active", Width: 6},
			{Title: "Payments", Width: 8},
		})
		for i, n := range reg.All() {
			mark := ""
			if n.ChainID == active {
				mark = "✓"
				t.Highlight = i
			}
			pay := ""
			if n.ChainID == config.TargetChainID {
				pay = "✓"
			}
			t.AddRow(ui.Row{strconv.FormatInt(n.ChainID, 10), n.Name, n.NativeCurrency.Symbol, mark, pay})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		if !reg.Has(config.TargetChainID) {
			fmt.Fprintln(out, ui.Hint(config.TargetChainName+" is added on the first connect, or with: w3pay network ensure"))
		}
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkInfoCmd, networkEnsureCmd, networkListCmd)
}
