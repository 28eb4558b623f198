package server

import "strconv"

// frame is the union of every inbound record. Absent fields decode to zero
// values and each handler validates the fields it actually uses.
type frame struct {
	Type        string `json:"type"`
	Nickname    string `json:"nickname,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Status      string `json:"status,omitempty"`
	AvatarColor string `json:"avatarColor,omitempty"`
	RoomID      any    `json:"roomId,omitempty"`
	Message     string `json:"message,omitempty"`
	IsTyping    bool   `json:"isTyping,omitempty"`
	To          string `json:"to,omitempty"`
	With        string `json:"with,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// parseRoomID accepts the JSON encodings clients actually send: numbers and
// numeric strings. Room IDs must be positive integers.
func parseRoomID(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		id := int64(v)
		if float64(id) != v || id <= 0 {
			return 0, false
		}
		return id, true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

type errorRecord struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errRecord(message string) errorRecord {
	return errorRecord{Type: "error", Message: message}
}

type joinedRecord struct {
	Type   string `json:"type"`
	RoomID int64  `json:"roomId"`
}

type joinNotice struct {
	Type      string `json:"type"`
	RoomID    int64  `json:"roomId"`
	Nickname  string `json:"nickname"`
	UserCount int    `json:"userCount"`
}

type leaveNotice struct {
	Type      string `json:"type"`
	RoomID    int64  `json:"roomId"`
	Nickname  string `json:"nickname"`
	UserCount int    `json:"userCount"`
}

type messageRecord struct {
	Type      string `json:"type"`
	RoomID    int64  `json:"roomId"`
	Nickname  string `json:"nickname"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	MessageID int64  `json:"messageId"`
}

type typingRecord struct {
	Type     string `json:"type"`
	RoomID   int64  `json:"roomId"`
	Nickname string `json:"nickname"`
	IsTyping bool   `json:"isTyping"`
}

type activeUser struct {
	Nickname    string `json:"nickname"`
	Status      string `json:"status"`
	AvatarColor string `json:"avatarColor"`
	LastActive  string `json:"lastActive"`
}

type activeUsersRecord struct {
	Type  string       `json:"type"`
	Users []activeUser `json:"users"`
}

type directMessageRecord struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type directMessageSentRecord struct {
	Type      string `json:"type"`
	To        string `json:"to"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type directHistoryEntry struct {
	ID        int64  `json:"id"`
	From      string `json:"from_user"`
	To        string `json:"to_user"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type directHistoryRecord struct {
	Type     string               `json:"type"`
	With     string               `json:"with"`
	Messages []directHistoryEntry `json:"messages"`
}

type directTypingRecord struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type livenessRecord struct {
	Status        string  `json:"status"`
	Connections   int     `json:"connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
