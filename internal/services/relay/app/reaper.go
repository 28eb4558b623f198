package server

import (
	"context"
	"log"
	"time"
)

// runReaper periodically evicts identified connections that have gone
// silent. Eviction closes the socket; the connection read loop observes the
// close and finishes its own teardown.
func (c *core) runReaper(ctx context.Context, idleTimeout, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweepIdle(idleTimeout)
		}
	}
}

// sweepIdle evicts every session idle for at least idleTimeout and returns
// how many it evicted. The roster is re-broadcast once per sweep, not once
// per eviction.
func (c *core) sweepIdle(idleTimeout time.Duration) int {
	cutoff := c.clock().Add(-idleTimeout)
	stale := c.registry.idleSessions(cutoff)
	for _, sess := range stale {
		nickname := c.releaseIdentity(sess)
		c.peers.remove(sess.peer)
		sess.peer.close()
		if nickname != "" {
			log.Printf("evicting idle connection: %s", nickname)
		}
	}
	if len(stale) > 0 {
		c.publishPresence()
	}
	return len(stale)
}
