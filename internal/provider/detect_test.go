package provider_test

import (
	"context"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRemoteAvailable(t *testing.T) {
	srv := walletServer(t, map[string]interface{}{"eth_chainId": "0x1"}, nil)

	p, err := provider.Detect(context.Background(), provider.DetectOptions{
		Kind:         provider.KindRemote,
		RemoteURL:    srv.URL,
		ProbeTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.IsType(t, &provider.RemoteProvider{}, p)
}

func TestDetectRemoteUnavailable(t *testing.T) {
	_, err := provider.Detect(context.Background(), provider.DetectOptions{
		Kind:         provider.KindRemote,
		RemoteURL:    "http://127.0.0.1:19982",
		ProbeTimeout: time.Second,
	})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
}

func TestDetectRemoteThatCannotAnswerChainID(t *testing.T) {
	srv := walletServer(t, nil, map[string]int{"eth_chainId": 4900})

	_, err := provider.Detect(context.Background(), provider.DetectOptions{
		Kind:      provider.KindRemote,
		RemoteURL: srv.URL,
	})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
}

func TestDetectLocalWithoutWallets(t *testing.T) {
	_, err := provider.Detect(context.Background(), provider.DetectOptions{
		Kind: provider.KindLocal,
		Local: provider.LocalOptions{
			Wallets:  wallet.NewManager(wallet.WithKeys(wallet.NewMemoryKeys())),
			Approver: provider.AutoApprove{},
		},
	})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
}

func TestDetectLocalPayoutOnlyIsNotEnough(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithKeys(wallet.NewMemoryKeys()))
	_, err := mgr.AddPayout("payout", common.HexToAddress(testAddr))
	require.NoError(t, err)

	_, err = provider.Detect(context.Background(), provider.DetectOptions{
		Kind:  provider.KindLocal,
		Local: provider.LocalOptions{Wallets: mgr, Approver: provider.AutoApprove{}},
	})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
}

func TestDetectLocalAvailable(t *testing.T) {
	p, err := provider.Detect(context.Background(), provider.DetectOptions{
		Kind:  provider.KindLocal,
		Local: provider.LocalOptions{Wallets: signingWallets(t), Approver: provider.AutoApprove{}},
	})
	require.NoError(t, err)
	assert.IsType(t, &provider.LocalProvider{}, p)
}

func TestDetectUnknownKind(t *testing.T) {
	_, err := provider.Detect(context.Background(), provider.DetectOptions{Kind: "injected"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, provider.ErrProviderUnavailable)
}
