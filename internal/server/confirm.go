package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// confirmations holds single-use tokens for destructive commands. A token is
// good for one redeem within ttl of being issued.
type confirmations struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	pending map[string]time.Time
}

func newConfirmations(clock clockwork.Clock, ttl time.Duration) *confirmations {
	return &confirmations{clock: clock, ttl: ttl, pending: make(map[string]time.Time)}
}

func (c *confirmations) issue() (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()

	token := uuid.NewString()
	expires := c.clock.Now().Add(c.ttl)
	c.pending[token] = expires
	return token, expires
}

// redeem consumes token. It reports false for unknown, used or expired tokens.
func (c *confirmations) redeem(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires, ok := c.pending[token]
	if !ok {
		return false
	}
	delete(c.pending, token)
	return !c.clock.Now().After(expires)
}

func (c *confirmations) prune() {
	now := c.clock.Now()
	for tok, exp := range c.pending {
		if now.After(exp) {
			delete(c.pending, tok)
		}
	}
}
