package proxy

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrEmpty is returned by Acquire when the pool holds no endpoints.
var ErrEmpty = errors.New("proxy pool is empty")

// DefaultBias is the probability of picking the best-scored endpoint instead of a random one.
const DefaultBias = 0.8

type health struct {
	endpoint     Endpoint
	successCount int
	failureCount int
	// credit ranks the endpoint. It mirrors successCount until a failure zeroes it.
	credit     int
	lastUsedAt time.Time
}

// Pool selects proxies biased toward endpoints that worked before, while
// avoiding endpoints that failed during the current run. It is safe for
// concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []*health
	byKey   map[string]*health
	failed  map[string]struct{}
	rng     *rand.Rand
	bias    float64
	now     func() time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithRand sets the random source, mostly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(p *Pool) { p.rng = r }
}

// WithBias overrides DefaultBias.
func WithBias(b float64) Option {
	return func(p *Pool) {
		if b >= 0 && b <= 1 {
			p.bias = b
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// NewPool builds a pool. Duplicate endpoints are collapsed.
func NewPool(endpoints []Endpoint, opts ...Option) *Pool {
	p := &Pool{
		byKey:  make(map[string]*health, len(endpoints)),
		failed: make(map[string]struct{}),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		bias:   DefaultBias,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, e := range endpoints {
		if _, dup := p.byKey[e.Key()]; dup {
			continue
		}
		h := &health{endpoint: e}
		p.entries = append(p.entries, h)
		p.byKey[e.Key()] = h
	}
	return p
}

// Len returns the number of distinct endpoints.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Acquire picks the next endpoint to use.
//
// With probability bias it returns the healthy endpoint with the highest credit,
// preferring the one unused for the longest time on ties. Otherwise it picks a
// healthy endpoint uniformly. When every endpoint has failed, the failed set is
// cleared and the pick is uniform over the whole pool.
func (p *Pool) Acquire() (Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return Endpoint{}, ErrEmpty
	}

	healthy := make([]*health, 0, len(p.entries))
	for _, h := range p.entries {
		if _, bad := p.failed[h.endpoint.Key()]; !bad {
			healthy = append(healthy, h)
		}
	}

	var pick *health
	switch {
	case len(healthy) == 0:
		clear(p.failed)
		pick = p.entries[p.rng.IntN(len(p.entries))]
	case p.rng.Float64() < p.bias:
		pick = best(healthy)
	default:
		pick = healthy[p.rng.IntN(len(healthy))]
	}

	pick.lastUsedAt = p.now()
	return pick.endpoint, nil
}

func best(candidates []*health) *health {
	top := candidates[0]
	for _, h := range candidates[1:] {
		switch {
		case h.credit > top.credit:
			top = h
		case h.credit == top.credit && h.lastUsedAt.Before(top.lastUsedAt):
			top = h
		}
	}
	return top
}

// ReportSuccess clears the endpoint's failed mark and credits it.
func (p *Pool) ReportSuccess(e Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.byKey[e.Key()]
	if !ok {
		return
	}
	delete(p.failed, e.Key())
	h.successCount++
	h.credit++
}

// ReportFailure marks the endpoint failed and zeroes its ranking credit.
// Historical counts are kept.
func (p *Pool) ReportFailure(e Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.byKey[e.Key()]
	if !ok {
		return
	}
	p.failed[e.Key()] = struct{}{}
	h.failureCount++
	h.credit = 0
}

// Stat is a read-only snapshot of one endpoint's health.
type Stat struct {
	Endpoint     Endpoint  `json:"endpoint"`
	SuccessCount int       `json:"successCount"`
	FailureCount int       `json:"failureCount"`
	Failed       bool      `json:"failed"`
	LastUsedAt   time.Time `json:"lastUsedAt"`
}

// Stats returns a snapshot of every endpoint in insertion order.
func (p *Pool) Stats() []Stat {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make([]Stat, 0, len(p.entries))
	for _, h := range p.entries {
		_, failed := p.failed[h.endpoint.Key()]
		stats = append(stats, Stat{
			Endpoint:     h.endpoint,
			SuccessCount: h.successCount,
			FailureCount: h.failureCount,
			Failed:       failed,
			LastUsedAt:   h.lastUsedAt,
		})
	}
	return stats
}
