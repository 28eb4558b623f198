package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured indicates a store method was called on a nil or closed store.
var ErrNotConfigured = errors.New("storage is not configured")

// DirectMessage is one durable direct-message record between two identities.
type DirectMessage struct {
	ID     int64
	From   string
	To     string
	Body   string
	SentAt time.Time
}

// RoomMessageAppender durably appends room messages.
type RoomMessageAppender interface {
	// AppendRoomMessage appends one room message and returns its durable id.
	AppendRoomMessage(ctx context.Context, roomID int64, sender string, body string) (int64, error)
}

// DirectMessageStore durably appends and reads direct messages.
type DirectMessageStore interface {
	// AppendDirectMessage appends one direct message and returns its durable id.
	AppendDirectMessage(ctx context.Context, from string, to string, body string) (int64, error)

	// DirectHistory returns up to limit messages exchanged between userA and
	// userB in either direction, ordered oldest first.
	DirectHistory(ctx context.Context, userA string, userB string, limit int) ([]DirectMessage, error)
}

// MessageStore is the persistence gateway the relay core consumes. The relay
// never broadcasts a message whose append has not succeeded.
type MessageStore interface {
	RoomMessageAppender
	DirectMessageStore
	Close() error
}
