package server

import (
	"context"
	"log"
	"time"

	"github.com/driftwoodchat/driftwood/internal/platform/timeouts"
	"github.com/driftwoodchat/driftwood/internal/services/relay/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// core owns the relay state: the open peer set, the identity registry and
// the room index, plus the durable message store. Handlers run on the read
// goroutine of the connection that produced the frame.
type core struct {
	store        storage.MessageStore
	clock        func() time.Time
	historyLimit int

	peers    *peerSet
	registry *registry
	rooms    *roomIndex
	started  time.Time
}

func newCore(store storage.MessageStore, clock func() time.Time, historyLimit int) *core {
	if clock == nil {
		clock = time.Now
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &core{
		store:        store,
		clock:        clock,
		historyLimit: historyLimit,
		peers:        newPeerSet(),
		registry:     newRegistry(clock),
		rooms:        newRoomIndex(),
		started:      clock(),
	}
}

func (c *core) timestamp() string {
	return c.clock().UTC().Format(time.RFC3339)
}

// storageContext bounds every persistence call so a stalled disk cannot
// wedge a connection read loop.
func storageContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeouts.Storage)
}

func (c *core) handleFrame(sess *session, f frame) {
	if c.registry.identity(sess) != "" {
		c.registry.touch(sess)
	}
	switch f.Type {
	case "identify":
		c.handleIdentify(sess, f)
	case "join_room":
		c.handleJoin(sess, f)
	case "leave_room":
		c.handleLeave(sess, f)
	case "message":
		c.handleRoomMessage(sess, f)
	case "typing":
		c.handleTyping(sess, f)
	case "direct_message":
		c.handleDirectMessage(sess, f)
	case "get_dm_history":
		c.handleDirectHistory(sess, f)
	case "direct_typing":
		c.handleDirectTyping(sess, f)
	default:
		log.Printf("dropping frame with unknown type %q", f.Type)
	}
}

func (c *core) handleIdentify(sess *session, f frame) {
	nickname := sanitizeNickname(f.Nickname)
	if nickname == "" {
		_ = sess.peer.writeRecord(errRecord(msgInvalidNickname))
		return
	}
	prof := profile{
		displayName: sanitizeText(f.DisplayName),
		status:      normalizeStatus(f.Status),
		avatarColor: normalizeAvatarColor(f.AvatarColor, nickname),
	}
	if prof.displayName == "" {
		prof.displayName = nickname
	}

	current := c.registry.identity(sess)
	if current == nickname {
		c.registry.refresh(sess, prof)
		c.publishPresence()
		return
	}
	if other := c.registry.lookup(nickname); other != nil && other != sess {
		_ = sess.peer.writeRecord(errRecord(msgNicknameInUse))
		sess.peer.close()
		return
	}
	if current != "" {
		// Re-identify under a new nickname: the old identity leaves all
		// of its rooms before the new one is bound.
		c.releaseIdentity(sess)
	}
	if err := c.registry.register(sess, nickname, prof); err != nil {
		_ = sess.peer.writeRecord(errRecord(msgNicknameInUse))
		sess.peer.close()
		return
	}
	log.Printf("user identified: %s", nickname)
	c.publishPresence()
}

func (c *core) handleJoin(sess *session, f frame) {
	nickname := c.registry.identity(sess)
	if nickname == "" {
		_ = sess.peer.writeRecord(errRecord(msgNotIdentified))
		return
	}
	roomID, ok := parseRoomID(f.RoomID)
	if !ok {
		_ = sess.peer.writeRecord(errRecord(msgInvalidRoomID))
		return
	}
	count, already, ok := c.joinAsMember(sess, nickname, roomID)
	if !ok || already {
		return
	}
	log.Printf("%s joined room %d (%d members)", nickname, roomID, count)
	c.broadcastToRoom(roomID, joinNotice{
		Type:      "join",
		RoomID:    roomID,
		Nickname:  nickname,
		UserCount: count,
	}, nickname)
	_ = sess.peer.writeRecord(joinedRecord{Type: "joined", RoomID: roomID})
}

func (c *core) handleLeave(sess *session, f frame) {
	nickname := c.registry.identity(sess)
	if nickname == "" {
		return
	}
	roomID, ok := parseRoomID(f.RoomID)
	if !ok {
		return
	}
	count, wasMember := c.rooms.leave(roomID, nickname)
	if !wasMember {
		return
	}
	c.broadcastToRoom(roomID, leaveNotice{
		Type:      "leave",
		RoomID:    roomID,
		Nickname:  nickname,
		UserCount: count,
	}, "")
}

func (c *core) handleRoomMessage(sess *session, f frame) {
	nickname := c.registry.identity(sess)
	if nickname == "" {
		_ = sess.peer.writeRecord(errRecord(msgNotIdentified))
		return
	}
	roomID, ok := parseRoomID(f.RoomID)
	body := sanitizeText(f.Message)
	if !ok || body == "" {
		_ = sess.peer.writeRecord(errRecord(msgInvalidMessage))
		return
	}
	if !c.rooms.contains(roomID, nickname) {
		_ = sess.peer.writeRecord(errRecord(msgNotInRoom))
		return
	}

	ctx, cancel := storageContext()
	messageID, err := c.store.AppendRoomMessage(ctx, roomID, nickname, body)
	cancel()
	if err != nil {
		log.Printf("persist room message: %v", err)
		_ = sess.peer.writeRecord(errRecord(msgSendFailed))
		return
	}

	// Membership is read after the write lands, so a member that joined
	// during persistence still receives the message.
	c.broadcastToRoom(roomID, messageRecord{
		Type:      "message",
		RoomID:    roomID,
		Nickname:  nickname,
		Message:   body,
		Timestamp: c.timestamp(),
		MessageID: messageID,
	}, "")
}

func (c *core) handleTyping(sess *session, f frame) {
	nickname := c.registry.identity(sess)
	if nickname == "" {
		return
	}
	roomID, ok := parseRoomID(f.RoomID)
	if !ok || !c.rooms.contains(roomID, nickname) {
		return
	}
	c.broadcastToRoom(roomID, typingRecord{
		Type:     "typing",
		RoomID:   roomID,
		Nickname: nickname,
		IsTyping: f.IsTyping,
	}, nickname)
}

func (c *core) handleDirectMessage(sess *session, f frame) {
	nickname := c.registry.identity(sess)
	if nickname == "" {
		_ = sess.peer.writeRecord(errRecord(msgNotIdentified))
		return
	}
	to := sanitizeNickname(f.To)
	body := sanitizeText(f.Message)
	if to == "" || body == "" {
		_ = sess.peer.writeRecord(errRecord(msgInvalidDirectMessage))
		return
	}

	ctx, cancel := storageContext()
	_, err := c.store.AppendDirectMessage(ctx, nickname, to, body)
	cancel()
	if err != nil {
		log.Printf("persist direct message: %v", err)
		_ = sess.peer.writeRecord(errRecord(msgDirectSendFailed))
		return
	}

	ts := c.timestamp()
	if rcpt := c.registry.lookup(to); rcpt != nil {
		_ = rcpt.peer.writeRecord(directMessageRecord{
			Type:      "direct_message",
			From:      nickname,
			Message:   body,
			Timestamp: ts,
		})
	}
	// The sender gets an echo whether or not the recipient is online; the
	// message is durable either way.
	_ = sess.peer.writeRecord(directMessageSentRecord{
		Type:      "direct_message_sent",
		To:        to,
		Message:   body,
		Timestamp: ts,
	})
}

func (c *core) handleDirectHistory(sess *session, f frame) {
	nickname := c.registry.identity(sess)
	if nickname == "" {
		return
	}
	with := sanitizeNickname(f.With)
	if with == "" {
		return
	}
	limit := f.Limit
	if limit <= 0 {
		limit = c.historyLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	ctx, cancel := storageContext()
	history, err := c.store.DirectHistory(ctx, nickname, with, limit)
	cancel()
	if err != nil {
		log.Printf("load direct history: %v", err)
		_ = sess.peer.writeRecord(errRecord(msgHistoryFailed))
		return
	}

	entries := make([]directHistoryEntry, 0, len(history))
	for _, m := range history {
		entries = append(entries, directHistoryEntry{
			ID:        m.ID,
			From:      m.From,
			To:        m.To,
			Message:   m.Body,
			Timestamp: m.SentAt.UTC().Format(time.RFC3339),
		})
	}
	_ = sess.peer.writeRecord(directHistoryRecord{
		Type:     "direct_message_history",
		With:     with,
		Messages: entries,
	})
}

func (c *core) handleDirectTyping(sess *session, f frame) {
	nickname := c.registry.identity(sess)
	if nickname == "" {
		return
	}
	to := sanitizeNickname(f.To)
	if to == "" {
		return
	}
	if rcpt := c.registry.lookup(to); rcpt != nil {
		_ = rcpt.peer.writeRecord(directTypingRecord{Type: "direct_typing", From: nickname})
	}
}

// broadcastToRoom delivers a record to every connected member of a room,
// optionally skipping one nickname. Delivery failures are per-peer and do
// not interrupt the fan-out.
func (c *core) broadcastToRoom(roomID int64, record any, exclude string) {
	for _, nickname := range c.rooms.roster(roomID) {
		if nickname == exclude {
			continue
		}
		if member := c.registry.lookup(nickname); member != nil {
			_ = member.peer.writeRecord(record)
		}
	}
}

// joinAsMember commits a room membership. The registry is re-checked after
// the index insert so a session evicted mid-join rolls its membership back
// instead of leaving a ghost member behind.
func (c *core) joinAsMember(sess *session, nickname string, roomID int64) (count int, already, ok bool) {
	count, already = c.rooms.join(roomID, nickname)
	if already {
		return count, true, true
	}
	if c.registry.lookup(nickname) != sess {
		c.rooms.leave(roomID, nickname)
		return 0, false, false
	}
	return count, false, true
}

// releaseIdentity removes the session from the registry and from every room
// it was in, broadcasting the departures. It returns the nickname that was
// released, or "" when the session had none. The room index is the
// authority on membership here; the registry only proves the nickname
// belonged to this session.
func (c *core) releaseIdentity(sess *session) string {
	nickname, ok := c.registry.unregister(sess)
	if !ok {
		return ""
	}
	for _, dep := range c.rooms.leaveAll(nickname) {
		c.broadcastToRoom(dep.roomID, leaveNotice{
			Type:      "leave",
			RoomID:    dep.roomID,
			Nickname:  nickname,
			UserCount: dep.remaining,
		}, "")
	}
	return nickname
}

// disconnect tears down a connection: identity and room cleanup, peer set
// removal and socket close. It is safe to call more than once per session.
func (c *core) disconnect(sess *session) {
	nickname := c.releaseIdentity(sess)
	c.peers.remove(sess.peer)
	sess.peer.close()
	if nickname != "" {
		log.Printf("user disconnected: %s", nickname)
		c.publishPresence()
	}
}
