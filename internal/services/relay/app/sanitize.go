package server

import (
	"hash/fnv"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNicknameRunes = 30
	maxMessageRunes  = 1000
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// sanitizeNickname keeps letters, digits, spaces, underscores and hyphens,
// trims surrounding whitespace and truncates to maxNicknameRunes.
func sanitizeNickname(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return truncateRunes(strings.TrimSpace(b.String()), maxNicknameRunes)
}

// sanitizeText strips markup-significant characters, trims surrounding
// whitespace and truncates to maxMessageRunes.
func sanitizeText(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch r {
		case '<', '>', '"', '\'':
		default:
			b.WriteRune(r)
		}
	}
	return truncateRunes(strings.TrimSpace(b.String()), maxMessageRunes)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// normalizeStatus collapses arbitrary client input to the two states the
// roster understands. Anything unrecognized means the user is online.
func normalizeStatus(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == statusOffline {
		return statusOffline
	}
	return statusOnline
}

var avatarColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var avatarPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}

// normalizeAvatarColor accepts a #rrggbb value as-is. Anything else maps to
// a palette color derived from the nickname so the same user always renders
// with the same color.
func normalizeAvatarColor(raw, nickname string) string {
	raw = strings.TrimSpace(raw)
	if avatarColorPattern.MatchString(raw) {
		return raw
	}
	h := fnv.New32a()
	h.Write([]byte(nickname))
	return avatarPalette[int(h.Sum32())%len(avatarPalette)]
}
