package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"council-assistant-backend/internal/catalog"
	"council-assistant-backend/internal/store"
)

func TestBubble_User(t *testing.T) {
	got := string(Bubble(store.Entry{Role: store.RoleUser, Text: `<script>alert(1)</script> bins?`}))

	assert.Contains(t, got, "chat-widget__bubble--user")
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.NotContains(t, got, "bubble-avatar")
}

func TestBubble_AIWithLink(t *testing.T) {
	got := string(Bubble(store.Entry{
		Role: store.RoleAI,
		Text: "Here are the next collections for <strong>HP11 2PG</strong>:<br>",
		Link: &catalog.Link{Href: "/bins-and-recycling/bin-collection-days/", Label: "See the calendar"},
	}))

	assert.Contains(t, got, "chat-widget__bubble--ai")
	assert.Contains(t, got, "bubble-avatar")
	assert.Contains(t, got, "<strong>HP11 2PG</strong>")
	assert.Contains(t, got, `<a href="/bins-and-recycling/bin-collection-days/">See the calendar &rarr;</a>`)
}

func TestBubble_AISanitizesEchoedInput(t *testing.T) {
	got := string(Bubble(store.Entry{
		Role: store.RoleAI,
		Text: `Collections for <strong><IMG SRC=X ONERROR=ALERT(1)></strong>`,
	}))

	assert.NotContains(t, strings.ToLower(got), "onerror")
	assert.NotContains(t, got, "<a href")
}

func TestBubble_LinkHrefIsEscaped(t *testing.T) {
	got := string(Bubble(store.Entry{
		Role: store.RoleAI,
		Text: "x",
		Link: &catalog.Link{Href: "javascript:alert(1)", Label: "go"},
	}))

	assert.NotContains(t, got, "javascript:")
}

func TestBubblesAndTyping(t *testing.T) {
	out := Bubbles([]store.Entry{{Role: store.RoleUser, Text: "a"}, {Role: store.RoleAI, Text: "b"}})

	assert.Len(t, out, 2)
	assert.Contains(t, string(Typing()), "Assistant is typing")
}
