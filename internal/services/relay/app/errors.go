package server

import "errors"

// Client-facing error strings. These are part of the wire contract and
// are matched verbatim by existing clients.
const (
	msgInvalidNickname      = "Invalid nickname"
	msgNicknameInUse        = "Nickname already in use"
	msgNotIdentified        = "Not identified"
	msgInvalidRoomID        = "Invalid room ID"
	msgInvalidMessage       = "Invalid message data"
	msgNotInRoom            = "Not in room"
	msgSendFailed           = "Failed to send message"
	msgInvalidDirectMessage = "Invalid direct message data"
	msgDirectSendFailed     = "Failed to send direct message"
	msgHistoryFailed        = "Failed to load message history"
)

var errIdentityConflict = errors.New("nickname already bound to a live connection")
