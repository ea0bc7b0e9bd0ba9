package token

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The two ERC-20 entry points a deposit needs:
//
//	balanceOf(address)       → 0x70a08231
//	transfer(address,uint256) → 0xa9059cbb
const erc20JSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

var erc20 = mustParseABI(erc20JSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("token: invalid ERC-20 ABI: " + err.Error())
	}
	return parsed
}
