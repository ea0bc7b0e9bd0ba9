package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Provider kinds.
const (
	KindLocal  = "local"
	KindRemote = "remote"
)

// DetectOptions selects and configures the wallet to look for.
type DetectOptions struct {
	Kind string

	// RemoteURL is the wallet endpoint for KindRemote.
	RemoteURL string
	// ProbeTimeout bounds the eth_chainId probe of a remote wallet. It is the
	// only timeout applied to a remote wallet.
	ProbeTimeout time.Duration

	// Local configures KindLocal.
	Local LocalOptions
}

// Detect returns the configured wallet, or an error wrapping
// ErrProviderUnavailable when there is none to talk to.
func Detect(ctx context.Context, opts DetectOptions) (Provider, error) {
	switch opts.Kind {
	case KindRemote:
		return detectRemote(ctx, opts)
	case KindLocal, "":
		return detectLocal(opts.Local)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", opts.Kind)
	}
}

func detectRemote(ctx context.Context, opts DetectOptions) (Provider, error) {
	p := NewRemote(opts.RemoteURL)

	probeCtx := ctx
	if opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, opts.ProbeTimeout)
		defer cancel()
	}
	if _, err := NewAdapter(p).CurrentChainID(probeCtx); err != nil {
		log.Debug().Str("url", p.URL()).Err(err).Msg("remote wallet probe failed")
		return nil, fmt.Errorf("%w: no wallet answering at %s", ErrProviderUnavailable, p.URL())
	}
	log.Debug().Str("url", p.URL()).Msg("remote wallet detected")
	return p, nil
}

func detectLocal(opts LocalOptions) (Provider, error) {
	if opts.Wallets == nil || len(opts.Wallets.Signing()) == 0 {
		return nil, fmt.Errorf("%w: no signing wallet configured", ErrProviderUnavailable)
	}
	p, err := NewLocal(opts)
	if err != nil {
		return nil, err
	}
	log.Debug().Int64("chain_id", p.ActiveNetwork().ChainID).Msg("local wallet detected")
	return p, nil
}
