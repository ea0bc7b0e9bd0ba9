package cmd

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Long: `Show the configuration after environment overrides. Every key can be set
for a single run with W3PAY_<KEY>, e.g. W3PAY_API_ENV=local.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.APIToken != "" {
			shown.APIToken = "********"
		}
		data, err := json.MarshalIndent(&shown, "", "  ")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", ui.StyleTitle.Render("Current configuration"))
		fmt.Fprintln(out, string(data))
		fmt.Fprintln(out, ui.Meta("Backend: "+cfg.BackendURL()))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long: `Set one key and save it. Keys:

  api_env         local | production
  api_token       bearer token sent to the backend
  backend_url     overrides the api_env backend
  provider        local | remote
  provider_url    JSON-RPC endpoint of the remote wallet
  default_wallet  account offered first by the local wallet
  rpc_algorithm   fastest | round-robin | failover
  log_level       debug | info | warn | error`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		shown := args[1]
		if args[0] == "api_token" {
			shown = "********"
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %s", args[0], shown)))
		return nil
	},
}

var configRPCCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage custom RPC URLs used by the local wallet",
}

var configRPCAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a custom RPC for Polygon Amoy (or --chain)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.AddRPC(rpcChainID, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC %s added for chain %d", args[0], rpcChainID)))
		return nil
	},
}

var configRPCRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove a custom RPC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(rpcChainID, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC %s removed for chain %d", args[0], rpcChainID)))
		return nil
	},
}

var configRPCListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom RPCs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(cfg.CustomRPCs) == 0 {
			fmt.Fprintln(out, ui.Info("No custom RPCs."))
			return nil
		}
		t := ui.NewTable([]ui.Column{{Title: "Chain ID", Width: 9}, {Title: "URL", Width: 48}})
		for _, key := range slices.Sorted(maps.Keys(cfg.CustomRPCs)) {
			for _, u := range cfg.CustomRPCs[key] {
				t.AddRow(ui.Row{key, u})
			}
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

var rpcChainID int64

func init() {
	configRPCCmd.PersistentFlags().Int64Var(&rpcChainID, "chain", config.TargetChainID, "chain id ("+strconv.FormatInt(config.TargetChainID, 10)+" is Polygon Amoy)")
	configRPCCmd.AddCommand(configRPCAddCmd, configRPCRemoveCmd, configRPCListCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configRPCCmd)
}
