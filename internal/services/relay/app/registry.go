package server

import (
	"sync"
	"time"
)

type profile struct {
	displayName string
	status      string
	avatarColor string
}

// session is one client connection. The peer pointer is set at accept time
// and never changes; every other field is guarded by the registry mutex.
type session struct {
	peer *peer

	nickname   string
	profile    profile
	lastActive time.Time
}

type presenceEntry struct {
	nickname   string
	profile    profile
	lastActive time.Time
}

// registry maps nicknames to live sessions. A nickname belongs to at most
// one connection at a time.
type registry struct {
	mu     sync.Mutex
	byNick map[string]*session
	clock  func() time.Time
}

func newRegistry(clock func() time.Time) *registry {
	return &registry{
		byNick: make(map[string]*session),
		clock:  clock,
	}
}

// register binds nickname to sess. It fails with errIdentityConflict when a
// different live session already holds the nickname.
func (r *registry) register(sess *session, nickname string, prof profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byNick[nickname]; ok && cur != sess {
		return errIdentityConflict
	}
	sess.nickname = nickname
	sess.profile = prof
	sess.lastActive = r.clock()
	r.byNick[nickname] = sess
	return nil
}

// refresh replaces the session profile without changing its identity.
func (r *registry) refresh(sess *session, prof profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess.profile = prof
	sess.lastActive = r.clock()
}

// touch records activity on the session.
func (r *registry) touch(sess *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess.lastActive = r.clock()
}

// identity returns the session nickname, or "" before identify.
func (r *registry) identity(sess *session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sess.nickname
}

// lookup resolves a nickname to its live session, if any.
func (r *registry) lookup(nickname string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byNick[nickname]
}

// unregister drops the session identity. It is a no-op on sessions that
// never identified or were already removed.
func (r *registry) unregister(sess *session) (nickname string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess.nickname == "" {
		return "", false
	}
	if cur := r.byNick[sess.nickname]; cur != sess {
		return "", false
	}
	nickname = sess.nickname
	delete(r.byNick, nickname)
	sess.nickname = ""
	return nickname, true
}

// snapshot copies the roster for presence fan-out.
func (r *registry) snapshot() []presenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]presenceEntry, 0, len(r.byNick))
	for _, sess := range r.byNick {
		entries = append(entries, presenceEntry{
			nickname:   sess.nickname,
			profile:    sess.profile,
			lastActive: sess.lastActive,
		})
	}
	return entries
}

// idleSessions returns every identified session whose last activity is at or
// before cutoff.
func (r *registry) idleSessions(cutoff time.Time) []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []*session
	for _, sess := range r.byNick {
		if !sess.lastActive.After(cutoff) {
			stale = append(stale, sess)
		}
	}
	return stale
}
