package rpc

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
)

// ParseAlgorithm maps a config value to an Algorithm. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	default:
		return "", fmt.Errorf("unknown rpc algorithm %q", s)
	}
}

// Endpoint is one benchmarked RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Healthy reports whether the endpoint answered the benchmark.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// eligible returns healthy endpoints that are not lagging the best block.
func eligible(endpoints []Endpoint) []Endpoint {
	var best uint64
	for _, e := range endpoints {
		if e.Healthy() && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	var out []Endpoint
	for _, e := range endpoints {
		if !e.Healthy() {
			continue
		}
		if best > 0 && best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		out = append(out, e)
	}
	return out
}

// fastest returns the eligible endpoint with the best score.
func fastest(endpoints []Endpoint) (Endpoint, error) {
	candidates := eligible(endpoints)
	if len(candidates) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}
	var best uint64
	for _, e := range candidates {
		best = max(best, e.BlockNumber)
	}
	winner := candidates[0]
	for _, e := range candidates[1:] {
		if score(e, best) > score(winner, best) {
			winner = e
		}
	}
	return winner, nil
}

// failover returns the first healthy endpoint in configured order.
func failover(endpoints []Endpoint) (Endpoint, error) {
	for _, e := range endpoints {
		if e.Healthy() {
			return e, nil
		}
	}
	return Endpoint{}, ErrNoHealthyRPC
}

// score favours low latency and penalises each block behind the best.
func score(e Endpoint, bestBlock uint64) float64 {
	var s float64
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else {
		s += 1000.0
	}
	if bestBlock > 0 {
		s += float64(10) - float64(bestBlock-e.BlockNumber)
	}
	return s
}
