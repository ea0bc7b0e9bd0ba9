package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3pay/internal/backend"
	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/config"
	"github.com/Mohsinsiddi/w3pay/internal/network"
	"github.com/Mohsinsiddi/w3pay/internal/payment"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/provider/providertest"
	"github.com/Mohsinsiddi/w3pay/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	account   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	recipient = common.HexToAddress(config.RecipientAddress)
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeNotifier struct {
	mu        sync.Mutex
	transfers []backend.Transfer
	withdraws []backend.Withdrawal
	err       error
	onPost    func()
}

func (n *fakeNotifier) PostTransfer(_ context.Context, t backend.Transfer) (*backend.Ack, error) {
	if n.onPost != nil {
		n.onPost()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transfers = append(n.transfers, t)
	if n.err != nil {
		return nil, n.err
	}
	return &backend.Ack{StatusCode: 200}, nil
}

func (n *fakeNotifier) RequestWithdraw(_ context.Context, w backend.Withdrawal) (*backend.Ack, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.withdraws = append(n.withdraws, w)
	if n.err != nil {
		return nil, n.err
	}
	return &backend.Ack{StatusCode: 200}, nil
}

// observed wraps a wallet and runs a hook before each request.
type observed struct {
	*providertest.Wallet
	before func(method string)
}

func (o *observed) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if o.before != nil {
		o.before(method)
	}
	return o.Wallet.Request(ctx, method, params...)
}

type fixture struct {
	wallet   *providertest.Wallet
	notifier *fakeNotifier
	opts     payment.Options
	ctrl     *payment.Controller
}

func newFixture(t *testing.T, chainID int64, mutate ...func(*payment.Options)) *fixture {
	t.Helper()
	w := providertest.New(chainID, account)
	w.SetBalance(account, big.NewInt(4_000_000_000_000_000_000))
	w.CallFunc = func(common.Address, []byte) ([]byte, error) {
		return common.LeftPadBytes(big.NewInt(7_000_000_000_000_000_000).Bytes(), 32), nil
	}
	f := &fixture{wallet: w, notifier: &fakeNotifier{}}

	opts := payment.Options{
		Detect:        func(context.Context) (provider.Provider, error) { return w, nil },
		Notifier:      f.notifier,
		Target:        config.TargetNetwork(),
		TokenContract: common.HexToAddress(config.TokenContract),
		TokenSymbol:   config.TokenSymbol,
		Recipient:     recipient,
		Kind:          payment.Token,
		Route:         backend.RouteDeposit,
	}
	for _, m := range mutate {
		m(&opts)
	}
	ctrl, err := payment.NewController(opts)
	require.NoError(t, err)
	f.opts, f.ctrl = opts, ctrl
	return f
}

func connected(t *testing.T, mutate ...func(*payment.Options)) *fixture {
	t.Helper()
	f := newFixture(t, config.TargetChainID, mutate...)
	require.NoError(t, f.ctrl.Connect(context.Background()))
	require.Equal(t, payment.StateConnected, f.ctrl.State())
	return f
}

// ---------------------------------------------------------------------------
// construction
// ---------------------------------------------------------------------------

func TestNewControllerRequiresCollaborators(t *testing.T) {
	_, err := payment.NewController(payment.Options{Notifier: &fakeNotifier{}, Target: config.TargetNetwork()})
	assert.Error(t, err)
	_, err = payment.NewController(payment.Options{
		Detect: func(context.Context) (provider.Provider, error) { return nil, nil },
		Target: config.TargetNetwork(),
	})
	assert.Error(t, err)
	_, err = payment.NewController(payment.Options{
		Detect:   func(context.Context) (provider.Provider, error) { return nil, nil },
		Notifier: &fakeNotifier{},
	})
	assert.Error(t, err)
}

func TestNewControllerStartsDisconnected(t *testing.T) {
	f := newFixture(t, config.TargetChainID)
	assert.Equal(t, payment.StateDisconnected, f.ctrl.State())
	_, ok := f.ctrl.Session()
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// connect
// ---------------------------------------------------------------------------

func TestConnectOnExpectedNetwork(t *testing.T) {
	f := connected(t)

	s, ok := f.ctrl.Session()
	require.True(t, ok)
	assert.Equal(t, account, s.Account)
	assert.Equal(t, config.TargetChainID, s.ChainID)
	assert.Contains(t, f.ctrl.Status(), account.Hex())

	b := f.ctrl.Balances()
	require.NotNil(t, b.Native)
	require.NotNil(t, b.Token)
	assert.Equal(t, "4", chain.FromBaseUnits(b.Native, chain.Decimals))
	assert.Equal(t, "7", chain.FromBaseUnits(b.Token, chain.Decimals))
}

func TestConnectWithoutProvider(t *testing.T) {
	f := newFixture(t, config.TargetChainID, func(o *payment.Options) {
		o.Detect = func(context.Context) (provider.Provider, error) {
			return nil, fmt.Errorf("%w: no wallet answering", provider.ErrProviderUnavailable)
		}
	})

	err := f.ctrl.Connect(context.Background())
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	assert.Equal(t, payment.StateDisconnected, f.ctrl.State())
	assert.Contains(t, f.ctrl.Status(), "No wallet found")
}

func TestConnectWrongChainUnknownNetwork(t *testing.T) {
	f := newFixture(t, 1)

	err := f.ctrl.Connect(context.Background())
	require.ErrorIs(t, err, network.ErrNetworkMismatch)
	assert.Equal(t, payment.StateDisconnected, f.ctrl.State())
	assert.Equal(t,
		[]string{"eth_chainId", "wallet_switchEthereumChain", "wallet_addEthereumChain"},
		f.wallet.Methods(), "no accounts are requested before the network is right")
	assert.Contains(t, f.ctrl.Status(), "was added to your wallet")
}

func TestConnectAfterSwitch(t *testing.T) {
	f := newFixture(t, 137)
	f.wallet.AddKnownChain(config.TargetChainID)

	assert.ErrorIs(t, f.ctrl.Connect(context.Background()), network.ErrNetworkMismatch)
	assert.Equal(t, payment.StateDisconnected, f.ctrl.State())

	// The user re-initiates once the wallet has switched.
	require.NoError(t, f.ctrl.Connect(context.Background()))
	assert.Equal(t, payment.StateConnected, f.ctrl.State())
}

func TestConnectRejected(t *testing.T) {
	f := newFixture(t, config.TargetChainID)
	f.wallet.Fail("eth_requestAccounts", provider.ErrUserRejected)

	assert.ErrorIs(t, f.ctrl.Connect(context.Background()), provider.ErrUserRejected)
	assert.Equal(t, payment.StateDisconnected, f.ctrl.State())
	assert.Equal(t, "Request rejected in wallet.", f.ctrl.Status())
}

func TestConnectNoAccounts(t *testing.T) {
	w := providertest.New(config.TargetChainID)
	f := newFixture(t, config.TargetChainID, func(o *payment.Options) {
		o.Detect = func(context.Context) (provider.Provider, error) { return w, nil }
	})
	assert.ErrorIs(t, f.ctrl.Connect(context.Background()), provider.ErrUnauthorized)
	assert.Equal(t, payment.StateDisconnected, f.ctrl.State())
}

func TestConnectTwice(t *testing.T) {
	f := connected(t)
	assert.ErrorIs(t, f.ctrl.Connect(context.Background()), payment.ErrInvalidTransition)
	assert.Equal(t, payment.StateConnected, f.ctrl.State())
}

// ---------------------------------------------------------------------------
// submit
// ---------------------------------------------------------------------------

func TestSubmitTokenDeposit(t *testing.T) {
	f := newFixture(t, config.TargetChainID)

	var (
		ctrl          *payment.Controller
		stateAtSend   payment.State
		stateAtNotify payment.State
	)
	opts := f.opts
	opts.Detect = func(context.Context) (provider.Provider, error) {
		return &observed{Wallet: f.wallet, before: func(method string) {
			if method == "eth_sendTransaction" {
				stateAtSend = ctrl.State()
			}
		}}, nil
	}
	f.notifier.onPost = func() { stateAtNotify = ctrl.State() }
	ctrl, err := payment.NewController(opts)
	require.NoError(t, err)
	require.NoError(t, ctrl.Connect(context.Background()))

	out, err := ctrl.Submit(context.Background(), "2.5")
	require.NoError(t, err)

	assert.Equal(t, payment.StateSubmitting, stateAtSend)
	assert.Equal(t, payment.StateConfirmed, stateAtNotify)
	assert.Equal(t, payment.StateConfirmed, ctrl.State())

	require.Len(t, f.notifier.transfers, 1, "backend is notified exactly once")
	sent := f.notifier.transfers[0]
	assert.Equal(t, backend.RouteDeposit, sent.Route)
	assert.Equal(t, f.wallet.TxHash.Hex(), sent.TxHash)
	assert.Equal(t, account.Hex(), sent.Sender)
	assert.Equal(t, config.RecipientAddress, sent.Recipient)
	assert.Equal(t, "2.5", sent.Amount)

	assert.Equal(t, f.wallet.TxHash.Hex(), out.Receipt.TxHash)
	assert.Equal(t, token.StatusPending, out.Receipt.Status)
	assert.NoError(t, out.NotifyErr)
	assert.Equal(t, "2500000000000000000", out.Request.BaseUnits().String())
	assert.Contains(t, ctrl.Status(), f.wallet.TxHash.Hex())

	require.NoError(t, ctrl.Acknowledge())
	assert.Equal(t, payment.StateConnected, ctrl.State())
}

func TestSubmitRefreshesBalances(t *testing.T) {
	f := connected(t)
	before := f.wallet.Count("eth_getBalance")

	_, err := f.ctrl.Submit(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, before+1, f.wallet.Count("eth_getBalance"))

	methods := f.wallet.Methods()
	assert.Equal(t, "eth_call", methods[len(methods)-1], "balances are read after the transfer")
}

func TestSubmitRejectsBadAmountBeforeProvider(t *testing.T) {
	for _, amount := range []string{"", "abc", "1e5", "-1", "0", "0.0", "1.0000000000000000001", " 1"} {
		t.Run(fmt.Sprintf("%q", amount), func(t *testing.T) {
			f := connected(t)
			calls := len(f.wallet.Calls())

			_, err := f.ctrl.Submit(context.Background(), amount)
			assert.ErrorIs(t, err, payment.ErrInvalidAmount)
			assert.Len(t, f.wallet.Calls(), calls, "no provider call for an invalid amount")
			assert.Equal(t, payment.StateConnected, f.ctrl.State())
			assert.Equal(t, "Enter a valid amount.", f.ctrl.Status())
			assert.Empty(t, f.notifier.transfers)
		})
	}
}

func TestSubmitRejectsAmountBeyondUint256(t *testing.T) {
	f := connected(t)
	calls := len(f.wallet.Calls())

	_, err := f.ctrl.Submit(context.Background(), "10000000000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, chain.ErrAmountTooLarge)
	assert.Len(t, f.wallet.Calls(), calls, "the wallet never sees a wrapped amount")
	assert.Equal(t, payment.StateConnected, f.ctrl.State())
	assert.Equal(t, "Enter a valid amount.", f.ctrl.Status())
	assert.Empty(t, f.notifier.transfers)
}

func TestSubmitBlockedOnOtherChain(t *testing.T) {
	for _, id := range []int64{1, 137, 11155111, 80001} {
		t.Run(fmt.Sprint(id), func(t *testing.T) {
			f := connected(t)
			f.wallet.SetChainID(id)

			_, err := f.ctrl.Submit(context.Background(), "2.5")
			require.ErrorIs(t, err, network.ErrNetworkMismatch)
			assert.Zero(t, f.wallet.Count("eth_sendTransaction"))
			assert.Empty(t, f.notifier.transfers)
			assert.Equal(t, payment.StateConnected, f.ctrl.State())

			s, _ := f.ctrl.Session()
			assert.Equal(t, id, s.ChainID)
		})
	}
}

func TestSubmitAfterWalletSwitchedBack(t *testing.T) {
	f := connected(t)
	f.wallet.SetChainID(1)

	// The guard switches the wallet back, but this attempt still aborts.
	_, err := f.ctrl.Submit(context.Background(), "1")
	require.ErrorIs(t, err, network.ErrNetworkMismatch)
	assert.Equal(t, config.TargetChainID, f.wallet.ChainID())

	_, err = f.ctrl.Submit(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.wallet.Count("eth_sendTransaction"))
}

func TestSubmitUserRejected(t *testing.T) {
	f := connected(t)
	f.wallet.Fail("eth_sendTransaction", provider.ErrUserRejected)

	_, err := f.ctrl.Submit(context.Background(), "2.5")
	assert.ErrorIs(t, err, provider.ErrUserRejected)
	assert.Equal(t, payment.StateFailed, f.ctrl.State())
	assert.Equal(t, "Request rejected in wallet.", f.ctrl.Status())
	assert.Empty(t, f.notifier.transfers)

	require.NoError(t, f.ctrl.Acknowledge())
	assert.Equal(t, payment.StateConnected, f.ctrl.State())
}

func TestSubmitRevert(t *testing.T) {
	f := connected(t)
	f.wallet.Fail("eth_sendTransaction", provider.NewError(provider.CodeExecutionReverted, "execution reverted"))

	_, err := f.ctrl.Submit(context.Background(), "2.5")
	assert.ErrorIs(t, err, token.ErrTransferRejected)
	assert.Equal(t, payment.StateFailed, f.ctrl.State())
	assert.Equal(t, "Transaction failed. Check gas settings.", f.ctrl.Status())
}

func TestSubmitNoRetry(t *testing.T) {
	f := connected(t)
	f.wallet.Fail("eth_sendTransaction", provider.NewError(provider.CodeInternal, "boom"))

	_, err := f.ctrl.Submit(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, 1, f.wallet.Count("eth_sendTransaction"))

	// A second attempt needs an acknowledge first.
	_, err = f.ctrl.Submit(context.Background(), "1")
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
}

func TestSubmitBackendFailureKeepsConfirmed(t *testing.T) {
	f := connected(t)
	f.notifier.err = fmt.Errorf("%w: connection refused", backend.ErrBackendUnreachable)

	out, err := f.ctrl.Submit(context.Background(), "2.5")
	require.NoError(t, err)
	assert.ErrorIs(t, out.NotifyErr, backend.ErrBackendUnreachable)
	assert.Equal(t, payment.StateConfirmed, f.ctrl.State())
	assert.Contains(t, f.ctrl.Status(), "out of sync")
	assert.Len(t, f.notifier.transfers, 1)
}

func TestSubmitNative(t *testing.T) {
	f := connected(t, func(o *payment.Options) {
		o.Kind = payment.Native
		o.Route = backend.RouteSend
	})

	_, err := f.ctrl.Submit(context.Background(), "0.5")
	require.NoError(t, err)

	call, ok := f.wallet.Last("eth_sendTransaction")
	require.True(t, ok)
	args, err := providertest.TxArgs(call)
	require.NoError(t, err)
	assert.Equal(t, recipient, *args.To)
	assert.Equal(t, "500000000000000000", args.Value.ToInt().String())
	assert.Equal(t, uint64(21000), uint64(*args.Gas))

	require.Len(t, f.notifier.transfers, 1)
	assert.Equal(t, backend.RouteSend, f.notifier.transfers[0].Route)
	assert.Equal(t, "0.5", f.notifier.transfers[0].Amount)
}

func TestSubmitWaitsForReceipt(t *testing.T) {
	f := connected(t, func(o *payment.Options) {
		o.WaitForReceipt = true
		o.ReceiptPoll = time.Millisecond
	})
	f.wallet.SetReceipt(f.wallet.TxHash, &provider.TxReceipt{TxHash: f.wallet.TxHash, Status: 1})

	out, err := f.ctrl.Submit(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, token.StatusConfirmed, out.Receipt.Status)
	assert.NoError(t, out.ReceiptErr)
}

func TestSubmitNotConnected(t *testing.T) {
	f := newFixture(t, config.TargetChainID)
	_, err := f.ctrl.Submit(context.Background(), "1")
	assert.ErrorIs(t, err, payment.ErrNotConnected)
	assert.Empty(t, f.wallet.Calls())
}

// ---------------------------------------------------------------------------
// acknowledge / disconnect
// ---------------------------------------------------------------------------

func TestAcknowledgeOnlyAfterAttempt(t *testing.T) {
	f := connected(t)
	assert.ErrorIs(t, f.ctrl.Acknowledge(), payment.ErrInvalidTransition)
}

func TestDisconnect(t *testing.T) {
	f := connected(t)
	require.NoError(t, f.ctrl.Disconnect())

	assert.Equal(t, payment.StateDisconnected, f.ctrl.State())
	_, ok := f.ctrl.Session()
	assert.False(t, ok)
	assert.Nil(t, f.ctrl.Balances().Native)

	_, err := f.ctrl.Submit(context.Background(), "1")
	assert.ErrorIs(t, err, payment.ErrNotConnected)

	require.NoError(t, f.ctrl.Disconnect(), "disconnecting twice is fine")
}

// ---------------------------------------------------------------------------
// withdraw
// ---------------------------------------------------------------------------

func TestWithdraw(t *testing.T) {
	f := connected(t)
	dest := "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"

	_, err := f.ctrl.Withdraw(context.Background(), "10.50", dest)
	require.NoError(t, err)

	require.Len(t, f.notifier.withdraws, 1)
	assert.Equal(t, "10.5", f.notifier.withdraws[0].Amount)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", f.notifier.withdraws[0].Recipient)
	assert.Equal(t, "Withdrawal requested.", f.ctrl.Status())
	assert.Zero(t, f.wallet.Count("eth_sendTransaction"))
}

func TestWithdrawValidation(t *testing.T) {
	f := connected(t)

	_, err := f.ctrl.Withdraw(context.Background(), "", config.RecipientAddress)
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)
	_, err = f.ctrl.Withdraw(context.Background(), "1", "not-an-address")
	assert.ErrorIs(t, err, payment.ErrInvalidRecipient)
	assert.Empty(t, f.notifier.withdraws)
}

func TestWithdrawBackendDown(t *testing.T) {
	f := connected(t)
	f.notifier.err = backend.ErrBackendUnreachable

	_, err := f.ctrl.Withdraw(context.Background(), "1", config.RecipientAddress)
	assert.ErrorIs(t, err, backend.ErrBackendUnreachable)
	assert.Contains(t, f.ctrl.Status(), "Withdrawal failed")
}

func TestWithdrawNotConnected(t *testing.T) {
	f := newFixture(t, config.TargetChainID)
	_, err := f.ctrl.Withdraw(context.Background(), "1", config.RecipientAddress)
	assert.ErrorIs(t, err, payment.ErrNotConnected)
}

// ---------------------------------------------------------------------------
// balances
// ---------------------------------------------------------------------------

func TestRefreshBalancesPartialFailure(t *testing.T) {
	f := connected(t)
	f.wallet.Fail("eth_call", provider.ErrDisconnected)

	b, err := f.ctrl.RefreshBalances(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrDisconnected)
	assert.NotNil(t, b.Native)
	assert.Nil(t, b.Token)
}

func TestRefreshBalancesNotConnected(t *testing.T) {
	f := newFixture(t, config.TargetChainID)
	_, err := f.ctrl.RefreshBalances(context.Background())
	assert.ErrorIs(t, err, payment.ErrNotConnected)
}

// ---------------------------------------------------------------------------
// concurrency
// ---------------------------------------------------------------------------

func TestConcurrentSubmitOnlyOneProceeds(t *testing.T) {
	f := connected(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctrl.Submit(context.Background(), "1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, payment.ErrInvalidTransition), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.wallet.Count("eth_sendTransaction"))
}
