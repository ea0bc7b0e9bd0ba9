package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var walletKeyFlag string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the accounts of the local wallet",
	Long: `Accounts added here are what the local wallet (provider=local) offers
when w3pay connects. Private keys are kept in the OS keychain.`,
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Import an account from its private key, or save a payout address",
	Long: `Import an account into the local wallet. Without --key the private key
is read from the terminal so it stays out of shell history.

With an address instead, the entry is a payout address: it cannot sign or
connect, but its name can be used as a withdrawal target
(w3pay withdraw 5 --to <name>).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		mgr := newWalletManager()

		if len(args) == 2 {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid address %q", args[1])
			}
			acct, err := mgr.AddPayout(name, common.HexToAddress(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Payout address %q added: %s", name, ui.Addr(acct.Address.Hex()))))
			return nil
		}

		key := walletKeyFlag
		if key == "" {
			key = terminalPrompter(out).Input("Private key for " + name)
		}
		acct, err := mgr.ImportKey(name, key)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Account %q added: %s", name, ui.Addr(acct.Address.Hex()))))
		if len(mgr.Signing()) > 1 {
			fmt.Fprintln(out, ui.Hint("Offer it first on connect with: w3pay wallet use "+name))
		}
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Create a new account",
	Long: `Generate a new keypair and store the private key in the OS keychain.
The private key is shown once; keep a copy somewhere safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, hexKey, err := newWalletManager().Generate(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %s  %s\n", ui.Meta("Account:"), ui.Val(acct.Name))
		fmt.Fprintf(out, "  %s  %s\n\n", ui.Meta("Address:"), ui.Addr(acct.Address.Hex()))
		fmt.Fprintln(out, ui.DangerBox(
			ui.Warn("PRIVATE KEY, shown only once. Never share it.")+"\n\n"+ui.Val(hexKey),
		))
		fmt.Fprintln(out, ui.Hint("Fund it with test POL from an Amoy faucet before depositing."))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr := newWalletManager()
		accounts := mgr.List()
		if len(accounts) == 0 {
			fmt.Fprintln(out, ui.Info("No accounts yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: w3pay wallet add <name>  or  w3pay wallet generate <name>"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Kind", Width: 8},
			{Title: "Default", Width: 7},
		})
		for i, acct := range accounts {
			def := ""
			if acct.IsDefault {
				def = "✓"
				t.Highlight = i
			}
			t.AddRow(ui.Row{acct.Name, acct.Address.Hex(), string(acct.Kind), def})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d account(s)", len(accounts))))
		if def := mgr.Default(); def != nil {
			fmt.Fprintln(out, ui.Meta("Default account: "+def.Name))
		}
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Offer this account first when connecting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := newWalletManager().SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default account set to %q.", name)))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an account and its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		mgr := newWalletManager()
		if _, err := mgr.Get(name); err != nil {
			return err
		}
		if !assumeYes && !terminalPrompter(out).ConfirmDanger(fmt.Sprintf("Remove account %q and its private key?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Account %q removed.", name)))
		return nil
	},
}

var walletExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Show the private key of an account",
	Long: `Show the stored private key of a signing account. Type the account name
to confirm before the key is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Warn("You are about to reveal a private key. Keep it secret."))
		if terminalPrompter(out).Input(fmt.Sprintf("Type %q to confirm", name)) != name {
			fmt.Fprintln(out, ui.Meta("Name mismatch, export cancelled."))
			return nil
		}
		hexKey, err := newWalletManager().ExportKey(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.DangerBox(
			ui.Warn("PRIVATE KEY. Never share it.")+"\n\n"+ui.Val(hexKey),
		))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "hex private key (read from the terminal when omitted)")
	walletCmd.AddCommand(walletAddCmd, walletGenerateCmd, walletListCmd, walletUseCmd, walletExportCmd, walletRemoveCmd)
}
