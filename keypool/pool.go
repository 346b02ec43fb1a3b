// Package keypool rotates requests across several equivalent API credentials and keeps
// rate-limited ones out of rotation until their cooldown expires.
package keypool

import (
	"sync"
	"time"
)

// DefaultCooldown is how long a rate-limited credential stays out of rotation.
const DefaultCooldown = 60 * time.Second

// Credential is one API key. Name is safe to log, Key is not.
type Credential struct {
	Name string `yaml:"name" json:"name"`
	Key  string `yaml:"key" json:"-"`
}

// Stat is the per-credential usage summary returned by Stats.
type Stat struct {
	Name       string    `json:"name"`
	Uses       int       `json:"uses"`
	Successes  int       `json:"successes"`
	RateLimits int       `json:"rate_limits"`
	LimitedNow bool      `json:"limited_now"`
	LimitedAt  time.Time `json:"limited_at,omitempty"`
}

type Option func(*Pool)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.cooldown = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// Pool is safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	creds       []Credential
	cursor      int
	rateLimited map[int]time.Time
	cooldown    time.Duration
	now         func() time.Time

	uses       []int
	successes  []int
	rateLimits []int
}

func New(creds []Credential, opts ...Option) *Pool {
	var kept []Credential
	for _, c := range creds {
		if c.Key == "" {
			continue
		}
		kept = append(kept, c)
	}
	p := &Pool{
		creds:       kept,
		rateLimited: make(map[int]time.Time),
		cooldown:    DefaultCooldown,
		now:         time.Now,
		uses:        make([]int, len(kept)),
		successes:   make([]int, len(kept)),
		rateLimits:  make([]int, len(kept)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Len returns the number of usable credentials.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Next returns the next credential that is not cooling down. When every credential is
// marked, the marks are cleared and false is returned so the caller can fall back; the
// following call starts again from the cursor.
func (p *Pool) Next() (Credential, bool) {
	if p == nil {
		return Credential{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.creds) == 0 {
		return Credential{}, false
	}
	p.pruneLocked()
	if len(p.rateLimited) >= len(p.creds) {
		p.rateLimited = make(map[int]time.Time)
		return Credential{}, false
	}

	for i := 0; i < len(p.creds); i++ {
		idx := (p.cursor + i) % len(p.creds)
		if _, limited := p.rateLimited[idx]; limited {
			continue
		}
		p.cursor = (idx + 1) % len(p.creds)
		p.uses[idx]++
		return p.creds[idx], true
	}
	return Credential{}, false
}

// MarkRateLimited takes c out of rotation for the cooldown period.
func (p *Pool) MarkRateLimited(c Credential) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.indexLocked(c)
	if idx < 0 {
		return
	}
	p.rateLimited[idx] = p.now()
	p.rateLimits[idx]++
}

// MarkSuccessful puts c straight back into rotation.
func (p *Pool) MarkSuccessful(c Credential) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.indexLocked(c)
	if idx < 0 {
		return
	}
	delete(p.rateLimited, idx)
	p.successes[idx]++
}

// Limited reports how many credentials are currently cooling down.
func (p *Pool) Limited() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	return len(p.rateLimited)
}

func (p *Pool) Stats() []Stat {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	out := make([]Stat, 0, len(p.creds))
	for i, c := range p.creds {
		at, limited := p.rateLimited[i]
		out = append(out, Stat{
			Name:       c.Name,
			Uses:       p.uses[i],
			Successes:  p.successes[i],
			RateLimits: p.rateLimits[i],
			LimitedNow: limited,
			LimitedAt:  at,
		})
	}
	return out
}

func (p *Pool) pruneLocked() {
	now := p.now()
	for idx, at := range p.rateLimited {
		if now.Sub(at) >= p.cooldown {
			delete(p.rateLimited, idx)
		}
	}
}

func (p *Pool) indexLocked(c Credential) int {
	for i, have := range p.creds {
		if have.Key == c.Key && have.Name == c.Name {
			return i
		}
	}
	for i, have := range p.creds {
		if have.Key == c.Key {
			return i
		}
	}
	return -1
}
