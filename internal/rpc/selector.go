package rpc

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/rs/zerolog/log"
)

// Selector picks the RPC URL a network's node reads go to.
type Selector struct {
	algo    Algorithm
	timeout time.Duration

	mu    sync.Mutex
	next  map[int64]int // round-robin cursor per chain id
	extra map[int64][]string
}

// NewSelector creates a selector. timeout bounds each benchmark run.
func NewSelector(algo Algorithm, timeout time.Duration) *Selector {
	return &Selector{algo: algo, timeout: timeout, next: make(map[int64]int), extra: make(map[int64][]string)}
}

// AddURLs registers user-supplied RPC URLs for a chain id. They are tried
// alongside, and ahead of, the network's own URLs.
func (s *Selector) AddURLs(chainID int64, urls ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		if !slices.Contains(s.extra[chainID], u) {
			s.extra[chainID] = append(s.extra[chainID], u)
		}
	}
}

// candidates returns the custom URLs for n followed by its own, without
// duplicates.
func (s *Selector) candidates(n chain.Network) []string {
	s.mu.Lock()
	urls := slices.Clone(s.extra[n.ChainID])
	s.mu.Unlock()
	for _, u := range n.RPCURLs {
		if !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	return urls
}

// Benchmark pings all URLs in parallel and returns results in input order.
func Benchmark(ctx context.Context, urls []string) []Endpoint {
	results := make([]Endpoint, len(urls))
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			latency, block, err := chain.NewClient(u).Ping(ctx)
			results[idx] = Endpoint{URL: u, Latency: latency, BlockNumber: block, Err: err}
		}(i, url)
	}

	wg.Wait()
	return results
}

// Select benchmarks the custom and built-in RPC URLs of n and applies the
// algorithm.
// A single URL is returned without probing.
func (s *Selector) Select(ctx context.Context, n chain.Network) (string, error) {
	urls := s.candidates(n)
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	results := Benchmark(ctx, urls)
	for _, r := range results {
		log.Debug().
			Int64("chain_id", n.ChainID).
			Str("url", r.URL).
			Dur("latency", r.Latency).
			Uint64("block", r.BlockNumber).
			AnErr("err", r.Err).
			Msg("rpc benchmark")
	}

	var (
		winner Endpoint
		err    error
	)
	switch s.algo {
	case AlgorithmRoundRobin:
		winner, err = s.roundRobin(n.ChainID, results)
	case AlgorithmFailover:
		winner, err = failover(results)
	default:
		winner, err = fastest(results)
	}
	if err != nil {
		return "", err
	}
	log.Debug().Int64("chain_id", n.ChainID).Str("url", winner.URL).Str("algorithm", string(s.algo)).Msg("rpc selected")
	return winner.URL, nil
}

func (s *Selector) roundRobin(chainID int64, endpoints []Endpoint) (Endpoint, error) {
	healthy := eligible(endpoints)
	if len(healthy) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.next[chainID] % len(healthy)
	s.next[chainID] = idx + 1
	return healthy[idx], nil
}
