// Package keypool provides a rotating API key pool used to spread explorer
// requests across a set of keys and soften per-key rate limits.
package keypool

import (
	"fmt"
	"math/rand"
	"sync/atomic"
)

// Strategy selects how the next key is chosen.
type Strategy string

const (
	// StrategyRandom picks a key uniformly at random per request
	StrategyRandom Strategy = "random"
	// StrategyRoundRobin rotates through the keys in order
	StrategyRoundRobin Strategy = "round_robin"
)

// Pool hands out API keys according to its strategy. Safe for concurrent use.
type Pool struct {
	keys     []string
	strategy Strategy
	next     atomic.Uint64
}

// New creates a pool from a non-empty key list. An unknown strategy falls
// back to random selection.
func New(keys []string, strategy Strategy) (*Pool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("key pool cannot be empty")
	}
	if strategy != StrategyRoundRobin {
		strategy = StrategyRandom
	}
	return &Pool{keys: keys, strategy: strategy}, nil
}

// Next returns the key to use for the next request.
func (p *Pool) Next() string {
	if p.strategy == StrategyRoundRobin {
		n := p.next.Add(1) - 1
		return p.keys[n%uint64(len(p.keys))]
	}
	return p.keys[rand.Intn(len(p.keys))]
}

// Size returns the number of keys in the pool.
func (p *Pool) Size() int {
	return len(p.keys)
}
