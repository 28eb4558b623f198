package server

import (
	"strings"
	"testing"
)

func TestSanitizeNickname(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "alice", "alice"},
		{"mixed allowed runes", "Bob_the-2nd man", "Bob_the-2nd man"},
		{"strips markup", "<script>alice</script>", "scriptalicescript"},
		{"strips symbols", "al@ice!", "alice"},
		{"trims after stripping", "  alice  ", "alice"},
		{"only rejected runes", "<>@!#", ""},
		{"truncates to thirty runes", strings.Repeat("a", 40), strings.Repeat("a", 30)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeNickname(tc.in); got != tc.want {
				t.Fatalf("sanitizeNickname(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello there", "hello there"},
		{"strips angle brackets and quotes", `<b>"hi"</b> it's me`, "bhi/b its me"},
		{"keeps unicode", "héllo ☺", "héllo ☺"},
		{"trims", "  hi  ", "hi"},
		{"truncates to limit", strings.Repeat("x", 1200), strings.Repeat("x", 1000)},
		{"empty after stripping", `<">'`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeText(tc.in); got != tc.want {
				t.Fatalf("sanitizeText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"online", statusOnline},
		{"offline", statusOffline},
		{" OFFLINE ", statusOffline},
		{"away", statusOnline},
		{"", statusOnline},
	}
	for _, tc := range tests {
		if got := normalizeStatus(tc.in); got != tc.want {
			t.Fatalf("normalizeStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAvatarColor(t *testing.T) {
	if got := normalizeAvatarColor("#A1b2C3", "alice"); got != "#A1b2C3" {
		t.Fatalf("valid color rewritten to %q", got)
	}

	first := normalizeAvatarColor("purple", "alice")
	second := normalizeAvatarColor("", "alice")
	if first != second {
		t.Fatalf("fallback color not deterministic: %q vs %q", first, second)
	}
	found := false
	for _, c := range avatarPalette {
		if c == first {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback color %q not from palette", first)
	}
}
