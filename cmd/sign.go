package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/Mohsinsiddi/w3pay/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	verifySig     string
	verifyAddress string
)

var signCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message with the connected account (personal_sign)",
	Long: `Ask the wallet to sign <message> with EIP-191 personal_sign. The
signature is checked locally before it is printed, so support can confirm
which account a deposit came from.

  w3pay sign "deposit 0x5f2e... is mine"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		message := []byte(args[0])

		detect, err := newDetector(out)
		if err != nil {
			return err
		}
		p, err := detect(ctx)
		if err != nil {
			return flowFailed(err)
		}
		a := provider.NewAdapter(p)

		account, err := signingAccount(ctx, a)
		if err != nil {
			return flowFailed(err)
		}
		sig, err := a.PersonalSign(ctx, message, account)
		if err != nil {
			return flowFailed(err)
		}
		recovered, err := wallet.RecoverText(message, sig)
		if err != nil {
			return fmt.Errorf("wallet returned an unusable signature: %w", err)
		}
		if recovered != account {
			return fmt.Errorf("signature recovers to %s, not %s", recovered.Hex(), account.Hex())
		}

		sigHex := hexutil.Encode(sig)
		fmt.Fprintln(out, ui.KeyValueBlock("Message signed", [][2]string{
			{"Signer", account.Hex()},
			{"Message", args[0]},
			{"Signature", sigHex},
		}))
		fmt.Fprintln(out, ui.Hint(fmt.Sprintf("Verify: w3pay verify %q --sig %s --address %s", args[0], sigHex, account.Hex())))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <message>",
	Short: "Recover the signer of a personal_sign signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifySig == "" {
			return errors.New("--sig is required")
		}
		sig, err := hexutil.Decode(verifySig)
		if err != nil {
			return fmt.Errorf("invalid signature hex: %w", err)
		}
		recovered, err := wallet.RecoverText([]byte(args[0]), sig)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		pairs := [][2]string{
			{"Message", args[0]},
			{"Signer", recovered.Hex()},
		}
		if verifyAddress != "" {
			if !common.IsHexAddress(verifyAddress) {
				return fmt.Errorf("invalid address %q", verifyAddress)
			}
			expected := common.HexToAddress(verifyAddress)
			pairs = append(pairs, [2]string{"Expected", expected.Hex()})
			if expected != recovered {
				fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Signature", pairs))
				return errors.New("signature does not match the expected address")
			}
			pairs = append(pairs, [2]string{"Match", "yes"})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Signature", pairs))
		return nil
	},
}

// signingAccount returns the account the wallet already exposes, asking it
// to connect one only when it exposes none.
func signingAccount(ctx context.Context, a *provider.Adapter) (common.Address, error) {
	if accounts, err := a.Accounts(ctx); err == nil && len(accounts) > 0 {
		return accounts[0], nil
	}
	accounts, err := a.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, provider.ErrUnauthorized
	}
	return accounts[0], nil
}

func init() {
	verifyCmd.Flags().StringVar(&verifySig, "sig", "", "hex signature (required)")
	verifyCmd.Flags().StringVar(&verifyAddress, "address", "", "expected signer")
}
