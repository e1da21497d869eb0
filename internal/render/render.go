// Package render turns transcript entries into the chat widget's bubble
// markup.
package render

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"council-assistant-backend/internal/store"
)

// Assistant text is display markup from the catalog, and may embed
// whatever the user typed as a postcode, so it goes through a UGC policy.
var policy = bluemonday.UGCPolicy()

const avatar = `<div class="chat-widget__bubble-avatar" aria-hidden="true">` +
	`<svg xmlns="http://www.w3.org/2000/svg" fill="none" viewBox="0 0 24 24" stroke-width="1.5" stroke="currentColor">` +
	`<path stroke-linecap="round" stroke-linejoin="round" d="M9.813 15.904L9 18.75l-.813-2.846a4.5 4.5 0 00-3.09-3.09L2.25 12l2.846-.813a4.5 4.5 0 003.09-3.09L9 5.25l.813 2.846a4.5 4.5 0 003.09 3.09L15.75 12l-2.846.813a4.5 4.5 0 00-3.09 3.09z" />` +
	`</svg></div>`

var bubbleTmpl = template.Must(template.New("bubble").Parse(
	`{{if .AI}}<div class="chat-widget__bubble chat-widget__bubble--ai">{{.Avatar}}<div class="chat-widget__bubble-text">{{.Text}}` +
		`{{with .Link}}<br><br><a href="{{.Href}}">{{.Label}} &rarr;</a>{{end}}</div></div>` +
		`{{else}}<div class="chat-widget__bubble chat-widget__bubble--user"><div class="chat-widget__bubble-text">{{.Plain}}</div></div>{{end}}`,
))

type bubbleData struct {
	AI     bool
	Avatar template.HTML
	Text   template.HTML
	Plain  string
	Link   any
}

// Bubble renders one entry. User text is escaped; assistant text is
// sanitized markup with an optional call-to-action link.
func Bubble(e store.Entry) template.HTML {
	data := bubbleData{AI: e.Role == store.RoleAI, Avatar: template.HTML(avatar)}
	if data.AI {
		data.Text = template.HTML(policy.Sanitize(e.Text))
		if e.Link != nil {
			data.Link = e.Link
		}
	} else {
		data.Plain = e.Text
	}
	var buf bytes.Buffer
	// The template is static and the data is plain values.
	_ = bubbleTmpl.Execute(&buf, data)
	return template.HTML(buf.String())
}

// Bubbles renders a whole transcript in order.
func Bubbles(entries []store.Entry) []template.HTML {
	out := make([]template.HTML, len(entries))
	for i, e := range entries {
		out[i] = Bubble(e)
	}
	return out
}

// Typing is the placeholder shown while a reply is being "written".
func Typing() template.HTML {
	return template.HTML(`<div class="chat-widget__bubble chat-widget__bubble--ai" aria-label="Assistant is typing">` +
		avatar +
		`<div class="chat-widget__bubble-text typing-dots"><span></span><span></span><span></span></div></div>`)
}
