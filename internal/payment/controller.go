// Package payment runs the connect, verify network, transfer and notify
// flow against a single wallet session.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3pay/internal/backend"
	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/Mohsinsiddi/w3pay/internal/network"
	"github.com/Mohsinsiddi/w3pay/internal/provider"
	"github.com/Mohsinsiddi/w3pay/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// Detector finds the wallet to connect to.
type Detector func(ctx context.Context) (provider.Provider, error)

// Notifier is the backend the flow reports to.
type Notifier interface {
	PostTransfer(ctx context.Context, t backend.Transfer) (*backend.Ack, error)
	RequestWithdraw(ctx context.Context, w backend.Withdrawal) (*backend.Ack, error)
}

// Options configures a Controller.
type Options struct {
	Detect   Detector
	Notifier Notifier
	// Target is the only network transfers may run on.
	Target chain.Network
	// TokenContract is the ERC-20 used for Token transfers.
	TokenContract common.Address
	TokenSymbol   string
	// Recipient receives every transfer.
	Recipient common.Address
	Kind      AssetKind
	Route     backend.Route
	// WaitForReceipt polls for the receipt after the backend is notified.
	WaitForReceipt bool
	ReceiptPoll    time.Duration
}

// Balances are the session account's on-chain balances in base units. A nil
// field could not be read.
type Balances struct {
	Native    *big.Int
	Token     *big.Int
	UpdatedAt time.Time
}

// Outcome describes a submitted transfer.
type Outcome struct {
	Request *TransferRequest
	Receipt *token.Receipt
	Ack     *backend.Ack
	// NotifyErr is set when the transfer went through but the backend was
	// not told. The transfer is not rolled back.
	NotifyErr error
	// ReceiptErr is set when receipt polling was requested and failed.
	ReceiptErr error
}

// Controller drives one payment session. Its methods are safe for
// concurrent use; state changes are serialised.
type Controller struct {
	opts Options

	mu       sync.Mutex
	state    State
	status   string
	session  *Session
	wallet   *provider.Adapter
	tokens   *token.Client
	balances Balances
}

// NewController returns a disconnected controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Detect == nil {
		return nil, errors.New("payment: detector is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("payment: notifier is required")
	}
	if opts.Target.ChainID == 0 {
		return nil, errors.New("payment: target network is required")
	}
	return &Controller{opts: opts, status: "Wallet not connected."}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the line to show the user.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Session returns a copy of the active session.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Balances returns the balances read by the last refresh.
func (c *Controller) Balances() Balances {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances
}

// Connect detects the wallet, makes sure it is on the target network and
// asks for an account. Any failure leaves the controller disconnected.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if err := c.transition(StateConnecting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.status = "Connecting wallet..."
	c.mu.Unlock()

	session, err := c.connect(ctx)
	if err != nil {
		c.fail(StateDisconnected, err)
		return err
	}

	c.mu.Lock()
	if err := c.transition(StateConnected); err != nil {
		// Disconnected while the wallet was prompting.
		c.mu.Unlock()
		return err
	}
	c.session = session
	c.wallet = provider.NewAdapter(session.Provider)
	c.tokens = token.NewClient(c.wallet, c.opts.TokenContract)
	c.status = fmt.Sprintf("Connected %s on %s.", session.Account.Hex(), c.opts.Target.Name)
	c.mu.Unlock()

	if _, err := c.RefreshBalances(ctx); err != nil {
		log.Debug().Err(err).Msg("balance refresh after connect failed")
	}
	return nil
}

func (c *Controller) connect(ctx context.Context) (*Session, error) {
	p, err := c.opts.Detect(ctx)
	if err != nil {
		return nil, err
	}
	wallet := provider.NewAdapter(p)
	if err := network.NewGuard(wallet, c.opts.Target).Ensure(ctx); err != nil {
		return nil, err
	}
	accounts, err := wallet.RequestAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, provider.ErrUnauthorized
	}
	return &Session{Provider: p, Account: accounts[0], ChainID: c.opts.Target.ChainID}, nil
}

// Submit transfers amount from the session account to the recipient and
// reports it to the backend.
//
// The amount is validated before the wallet is contacted. The chain id is
// read again and a mismatch blocks the transfer. Once a hash is returned the
// transfer is Confirmed and the backend is notified exactly once; a failed
// notification is reported in Outcome.NotifyErr.
func (c *Controller) Submit(ctx context.Context, amount string) (*Outcome, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if c.state != StateConnected {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot submit while %s", ErrInvalidTransition, state)
	}
	if _, err := parseAmount(amount); err != nil {
		c.status = StatusMessage(err)
		c.mu.Unlock()
		return nil, err
	}
	session, wallet, tokens := *c.session, c.wallet, c.tokens
	c.mu.Unlock()

	chainID, err := wallet.CurrentChainID(ctx)
	if err != nil {
		c.setStatus(err)
		return nil, err
	}
	session.ChainID = chainID
	req, err := NewTransferRequest(&session, c.opts.Target.ChainID, session.Account, c.opts.Recipient, amount, c.opts.Kind)
	if err != nil {
		if errors.Is(err, network.ErrNetworkMismatch) {
			// Prompt the wallet again; the transfer stays blocked either way.
			if guardErr := network.NewGuard(wallet, c.opts.Target).Ensure(ctx); guardErr != nil {
				err = guardErr
			}
		}
		c.mu.Lock()
		if c.session != nil {
			c.session.ChainID = chainID
		}
		c.status = StatusMessage(err)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	if err := c.transition(StateSubmitting); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.status = fmt.Sprintf("Sending %s %s...", req.Amount(), c.assetLabel())
	c.mu.Unlock()

	var receipt *token.Receipt
	if req.Kind() == Native {
		receipt, err = tokens.TransferNative(ctx, req.From(), req.To(), req.BaseUnits())
	} else {
		receipt, err = tokens.Transfer(ctx, req.From(), req.To(), req.BaseUnits())
	}
	if err != nil {
		c.fail(StateFailed, err)
		return nil, err
	}

	c.mu.Lock()
	if err := c.transition(StateConfirmed); err != nil {
		log.Debug().Err(err).Msg("payment state unchanged")
	}
	c.status = "Transaction hash: " + receipt.TxHash
	c.mu.Unlock()

	out := &Outcome{Request: req, Receipt: receipt}
	out.Ack, out.NotifyErr = c.opts.Notifier.PostTransfer(ctx, backend.Transfer{
		Route:     c.opts.Route,
		Sender:    req.From().Hex(),
		Recipient: req.To().Hex(),
		Amount:    req.Amount(),
		TxHash:    receipt.TxHash,
	})
	if out.NotifyErr != nil {
		log.Debug().Err(out.NotifyErr).Str("hash", receipt.TxHash).Msg("backend notification failed")
		c.mu.Lock()
		c.status = fmt.Sprintf("Transaction hash: %s. %s", receipt.TxHash, StatusMessage(out.NotifyErr))
		c.mu.Unlock()
	}

	if c.opts.WaitForReceipt {
		final, err := tokens.WaitReceipt(ctx, receipt.TxHash, c.opts.ReceiptPoll)
		if final != nil {
			out.Receipt = final
		}
		out.ReceiptErr = err
	}

	if _, err := c.RefreshBalances(ctx); err != nil {
		log.Debug().Err(err).Msg("balance refresh after transfer failed")
	}
	return out, nil
}

// Acknowledge returns a finished attempt, Confirmed or Failed, to Connected.
func (c *Controller) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConfirmed && c.state != StateFailed {
		return fmt.Errorf("%w: nothing to acknowledge while %s", ErrInvalidTransition, c.state)
	}
	return c.transition(StateConnected)
}

// Disconnect drops the session. A transfer in flight cannot be abandoned.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return nil
	}
	if err := c.transition(StateDisconnected); err != nil {
		return err
	}
	c.session, c.wallet, c.tokens = nil, nil, nil
	c.balances = Balances{}
	c.status = "Wallet disconnected."
	return nil
}

// Withdraw asks the backend to pay amount from the user's platform balance
// to recipient.
func (c *Controller) Withdraw(ctx context.Context, amount, recipient string) (*backend.Ack, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if c.state != StateConnected {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot withdraw while %s", ErrInvalidTransition, state)
	}
	c.mu.Unlock()

	raw, err := parseAmount(amount)
	if err != nil {
		c.setStatus(err)
		return nil, err
	}
	if !common.IsHexAddress(recipient) {
		err := fmt.Errorf("%w: %q", ErrInvalidRecipient, recipient)
		c.setStatus(err)
		return nil, err
	}

	ack, err := c.opts.Notifier.RequestWithdraw(ctx, backend.Withdrawal{
		Amount:    chain.FromBaseUnits(raw, chain.Decimals),
		Recipient: common.HexToAddress(recipient).Hex(),
	})
	if err != nil {
		c.mu.Lock()
		c.status = "Withdrawal failed. " + StatusMessage(err)
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Lock()
	c.status = "Withdrawal requested."
	c.mu.Unlock()

	if _, err := c.RefreshBalances(ctx); err != nil {
		log.Debug().Err(err).Msg("balance refresh after withdrawal failed")
	}
	return ack, nil
}

// RefreshBalances reads the session account's native and token balances.
// A balance that cannot be read is left nil and its error returned.
func (c *Controller) RefreshBalances(ctx context.Context) (Balances, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return Balances{}, ErrNotConnected
	}
	account, wallet, tokens := c.session.Account, c.wallet, c.tokens
	c.mu.Unlock()

	var (
		b    = Balances{UpdatedAt: time.Now()}
		errs []error
		err  error
	)
	if b.Native, err = wallet.NativeBalance(ctx, account); err != nil {
		errs = append(errs, fmt.Errorf("native balance: %w", err))
	}
	if b.Token, err = tokens.BalanceOf(ctx, account); err != nil {
		errs = append(errs, fmt.Errorf("token balance: %w", err))
	}

	c.mu.Lock()
	if c.session != nil && c.session.Account == account {
		c.balances = b
	}
	c.mu.Unlock()
	return b, errors.Join(errs...)
}

// transition moves to next. Callers hold c.mu.
func (c *Controller) transition(next State) error {
	if !CanTransition(c.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, next)
	}
	log.Debug().Str("from", c.state.String()).Str("to", next.String()).Msg("payment state")
	c.state = next
	return nil
}

// fail moves to next and records err as the status.
func (c *Controller) fail(next State, err error) {
	log.Debug().Err(err).Msg("payment flow failed")
	c.mu.Lock()
	defer c.mu.Unlock()
	if terr := c.transition(next); terr != nil {
		log.Debug().Err(terr).Msg("payment state unchanged")
	}
	c.status = StatusMessage(err)
}

func (c *Controller) setStatus(err error) {
	log.Debug().Err(err).Msg("payment flow rejected request")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusMessage(err)
}

func (c *Controller) assetLabel() string {
	if c.opts.Kind == Native {
		return c.opts.Target.NativeCurrency.Symbol
	}
	if c.opts.TokenSymbol != "" {
		return c.opts.TokenSymbol
	}
	return "tokens"
}
