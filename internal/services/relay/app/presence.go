package server

import (
	"context"
	"sort"
	"sync"
	"time"
)

// peerSet tracks every open connection, identified or not. The liveness
// endpoint and presence fan-out both read from it.
type peerSet struct {
	mu    sync.Mutex
	peers map[*peer]struct{}
}

func newPeerSet() *peerSet {
	return &peerSet{peers: make(map[*peer]struct{})}
}

func (s *peerSet) add(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p] = struct{}{}
}

func (s *peerSet) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p)
}

func (s *peerSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *peerSet) snapshot() []*peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	return peers
}

// publishPresence sends the full roster to every open connection, including
// ones that have not identified yet.
func (c *core) publishPresence() {
	entries := c.registry.snapshot()
	users := make([]activeUser, 0, len(entries))
	for _, e := range entries {
		users = append(users, activeUser{
			Nickname:    e.nickname,
			Status:      e.profile.status,
			AvatarColor: e.profile.avatarColor,
			LastActive:  e.lastActive.UTC().Format(time.RFC3339),
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Nickname < users[j].Nickname })

	record := activeUsersRecord{Type: "active_users", Users: users}
	for _, p := range c.peers.snapshot() {
		_ = p.writeRecord(record)
	}
}

// runPresenceHeartbeat re-broadcasts the roster on a fixed interval so
// clients converge even if an event-driven update was lost.
func (c *core) runPresenceHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.publishPresence()
		}
	}
}
