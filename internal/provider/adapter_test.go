package provider_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/provider/providertest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var account = common.HexToAddress(testAddr)

func TestAdapterCurrentChainID(t *testing.T) {
	a := provider.NewAdapter(providertest.New(80002))
	id, err := a.CurrentChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(80002), id)
}

func TestAdapterCurrentChainIDBadResult(t *testing.T) {
	a := provider.NewAdapter(stubProvider{"eth_chainId": `"amoy"`})
	_, err := a.CurrentChainID(context.Background())
	assert.Error(t, err)
}

func TestAdapterAccounts(t *testing.T) {
	w := providertest.New(1, account)
	a := provider.NewAdapter(w)

	accounts, err := a.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{account}, accounts)
	assert.Equal(t, 1, w.Count("eth_requestAccounts"))
}

func TestAdapterPropagatesRejection(t *testing.T) {
	w := providertest.New(1, account)
	w.Fail("eth_requestAccounts", provider.ErrUserRejected)

	_, err := provider.NewAdapter(w).RequestAccounts(context.Background())
	assert.ErrorIs(t, err, provider.ErrUserRejected)
}

func TestAdapterNativeBalance(t *testing.T) {
	w := providertest.New(80002, account)
	w.SetBalance(account, big.NewInt(3_000_000_000_000_000_000))

	bal, err := provider.NewAdapter(w).NativeBalance(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "3000000000000000000", bal.String())

	call, ok := w.Last("eth_getBalance")
	require.True(t, ok)
	assert.JSONEq(t, `"latest"`, string(call.Params[1]))
}

func TestAdapterSwitchChainSendsHexID(t *testing.T) {
	w := providertest.New(1)
	w.AddKnownChain(80002)

	require.NoError(t, provider.NewAdapter(w).SwitchChain(context.Background(), 80002))
	assert.Equal(t, int64(80002), w.ChainID())

	call, _ := w.Last("wallet_switchEthereumChain")
	assert.JSONEq(t, `{"chainId":"0x13882"}`, string(call.Params[0]))
}

func TestAdapterSwitchUnknownChain(t *testing.T) {
	err := provider.NewAdapter(providertest.New(1)).SwitchChain(context.Background(), 80002)
	assert.ErrorIs(t, err, provider.ErrUnrecognizedChain)
}

func TestAdapterAddChainPayload(t *testing.T) {
	w := providertest.New(1)
	n := chain.Network{
		ChainID:        80002,
		Name:           "Polygon Amoy Testnet",
		NativeCurrency: chain.Currency{Name: "POL", Symbol: "POL", Decimals: 18},
		RPCURLs:        []string{"https://rpc-amoy.maticvigil.com/"},
		ExplorerURL:    "https://amoy.polygonscan.com/",
	}
	require.NoError(t, provider.NewAdapter(w).AddChain(context.Background(), n))

	call, _ := w.Last("wallet_addEthereumChain")
	assert.JSONEq(t, `{
		"chainId": "0x13882",
		"chainName": "Polygon Amoy Testnet",
		"nativeCurrency": {"name": "POL", "symbol": "POL", "decimals": 18},
		"rpcUrls": ["https://rpc-amoy.maticvigil.com/"],
		"blockExplorerUrls": ["https://amoy.polygonscan.com/"]
	}`, string(call.Params[0]))
}

func TestAdapterSendTransaction(t *testing.T) {
	w := providertest.New(80002, account)
	to := common.HexToAddress("0xAc96CEaf54EB9511a6664806f2e0649EA02c2fD7")
	gas := hexutil.Uint64(21000)

	hash, err := provider.NewAdapter(w).SendTransaction(context.Background(), provider.TxArgs{
		From:  account,
		To:    &to,
		Value: (*hexutil.Big)(big.NewInt(1)),
		Gas:   &gas,
	})
	require.NoError(t, err)
	assert.Equal(t, w.TxHash, hash)

	call, _ := w.Last("eth_sendTransaction")
	args, err := providertest.TxArgs(call)
	require.NoError(t, err)
	assert.Equal(t, account, args.From)
	assert.Equal(t, to, *args.To)
	assert.Equal(t, uint64(21000), uint64(*args.Gas))
	assert.Nil(t, args.GasPrice)
}

func TestAdapterCall(t *testing.T) {
	w := providertest.New(80002)
	w.CallFunc = func(to common.Address, data []byte) ([]byte, error) {
		assert.Equal(t, "0x462A2aCb9128734770A3bd3271276966ad6fc22C", to.Hex())
		assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, data)
		return common.LeftPadBytes([]byte{0x2a}, 32), nil
	}

	out, err := provider.NewAdapter(w).Call(context.Background(),
		common.HexToAddress("0x462A2aCb9128734770A3bd3271276966ad6fc22C"),
		[]byte{0x70, 0xa0, 0x82, 0x31})
	require.NoError(t, err)
	assert.Equal(t, int64(42), new(big.Int).SetBytes(out).Int64())
}

func TestAdapterReceiptPendingIsNil(t *testing.T) {
	r, err := provider.NewAdapter(providertest.New(80002)).
		TransactionReceipt(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestAdapterReceipt(t *testing.T) {
	w := providertest.New(80002)
	hash := common.HexToHash("0xabc")
	w.SetReceipt(hash, &provider.TxReceipt{TxHash: hash, Status: 1, BlockNumber: 100})

	r, err := provider.NewAdapter(w).TransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Succeeded())
	assert.Equal(t, uint64(100), uint64(r.BlockNumber))
}

func TestReceiptFailedStatus(t *testing.T) {
	var r provider.TxReceipt
	require.NoError(t, json.Unmarshal([]byte(`{"transactionHash":"0x0000000000000000000000000000000000000000000000000000000000000001","status":"0x0","blockNumber":"0x10","gasUsed":"0x5208"}`), &r))
	assert.False(t, r.Succeeded())
	assert.Equal(t, uint64(21000), uint64(r.GasUsed))
}

func TestAdapterPersonalSignParams(t *testing.T) {
	w := providertest.New(80002, account)
	sig, err := provider.NewAdapter(w).PersonalSign(context.Background(), []byte("hi"), account)
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	call, _ := w.Last("personal_sign")
	require.Len(t, call.Params, 2)
	assert.JSONEq(t, `"0x6869"`, string(call.Params[0]))
}

func TestAdapterHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := provider.NewAdapter(providertest.New(1)).CurrentChainID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// stubProvider answers each method with a fixed raw JSON result.
type stubProvider map[string]string

func (s stubProvider) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	raw, ok := s[method]
	if !ok {
		return nil, provider.ErrUnsupportedMethod
	}
	return json.RawMessage(raw), nil
}
