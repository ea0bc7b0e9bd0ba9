package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/ui"
	"github.com/Mohsinsiddi/w3pay/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// terminalApprover shows the local wallet's confirmation dialogs on the
// terminal. With yes set every request is approved without a prompt.
type terminalApprover struct {
	out    io.Writer
	prompt *ui.Prompter
	yes    bool
	// pick chooses among several accounts; ui.PickItem outside tests.
	pick func(title string, items []ui.PickerItem) (string, error)
}

func newTerminalApprover(out io.Writer, prompt *ui.Prompter, yes bool) *terminalApprover {
	return &terminalApprover{
		out:    out,
		prompt: prompt,
		yes:    yes,
		pick: func(title string, items []ui.PickerItem) (string, error) {
			return ui.PickItem(title, items)
		},
	}
}

var _ provider.Approver = (*terminalApprover)(nil)

func (a *terminalApprover) ConnectAccounts(_ context.Context, candidates []*wallet.Account) ([]common.Address, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	chosen := preferredAccount(candidates)
	if len(candidates) > 1 && !a.yes {
		items := make([]ui.PickerItem, len(candidates))
		for i, acct := range candidates {
			items[i] = ui.PickerItem{Label: acct.Name, SubLabel: ui.TruncateAddr(acct.Address.Hex()), Value: acct.Name}
		}
		name, err := a.pick("Connect an account to w3pay", items)
		if err != nil {
			return nil, err
		}
		i := slices.IndexFunc(candidates, func(acct *wallet.Account) bool { return acct.Name == name })
		if i < 0 {
			return nil, nil
		}
		chosen = candidates[i]
	}
	if !a.approve(fmt.Sprintf("Connect %s (%s) to w3pay?", chosen.Name, ui.TruncateAddr(chosen.Address.Hex()))) {
		return nil, nil
	}
	return []common.Address{chosen.Address}, nil
}

func (a *terminalApprover) SwitchNetwork(_ context.Context, from, to chain.Network) (bool, error) {
	return a.approve(fmt.Sprintf("Allow w3pay to switch the network from %s to %s?", from.Name, to.Name)), nil
}

func (a *terminalApprover) AddNetwork(_ context.Context, n chain.Network) (bool, error) {
	pairs := [][2]string{
		{"Network", n.Name},
		{"Chain ID", fmt.Sprintf("%d (%s)", n.ChainID, n.HexChainID())},
		{"Currency", n.NativeCurrency.Symbol},
	}
	if len(n.RPCURLs) > 0 {
		pairs = append(pairs, [2]string{"RPC", n.RPCURLs[0]})
	}
	if n.ExplorerURL != "" {
		pairs = append(pairs, [2]string{"Explorer", n.ExplorerURL})
	}
	fmt.Fprintln(a.out, ui.KeyValueBlock("Add network", pairs))
	return a.approve("Allow w3pay to add this network?"), nil
}

func (a *terminalApprover) SendTransaction(_ context.Context, tx provider.TxSummary) (bool, error) {
	symbol := tx.Network.NativeCurrency.Symbol
	to := "contract creation"
	if tx.To != nil {
		to = tx.To.Hex()
	}
	pairs := [][2]string{
		{"Network", tx.Network.Name},
		{"From", tx.From.Hex()},
		{"To", to},
		{"Value", chain.FromBaseUnits(tx.Value, chain.Decimals) + " " + symbol},
	}
	if len(tx.Data) > 0 {
		pairs = append(pairs, [2]string{"Data", abbreviate(hexutil.Encode(tx.Data), 26)})
	}
	pairs = append(pairs,
		[2]string{"Gas limit", strconv.FormatUint(tx.Gas, 10)},
		[2]string{"Gas price", chain.FromBaseUnits(tx.GasPrice, 9) + " gwei"},
	)
	fmt.Fprintln(a.out, ui.KeyValueBlock("Confirm transaction", pairs))
	return a.approve("Sign and send this transaction?"), nil
}

func (a *terminalApprover) SignMessage(_ context.Context, account common.Address, msg []byte) (bool, error) {
	text := hexutil.Encode(msg)
	if utf8.Valid(msg) {
		text = string(msg)
	}
	fmt.Fprintln(a.out, ui.KeyValueBlock("Signature request", [][2]string{
		{"Account", account.Hex()},
		{"Message", text},
	}))
	return a.approve("Sign this message?"), nil
}

func (a *terminalApprover) approve(question string) bool {
	if a.yes {
		fmt.Fprintln(a.out, ui.Meta(question+" approved (--yes)"))
		return true
	}
	return a.prompt.Confirm(question)
}

// preferredAccount returns the default account when it is a candidate, else
// the first one.
func preferredAccount(candidates []*wallet.Account) *wallet.Account {
	if i := slices.IndexFunc(candidates, func(acct *wallet.Account) bool { return acct.IsDefault }); i >= 0 {
		return candidates[i]
	}
	return candidates[0]
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
