package server

import (
	"sync"

	"council-assistant-backend/internal/render"
	"council-assistant-backend/internal/store"
	"council-assistant-backend/internal/types"
)

// feed is the panel.Renderer of an HTTP-driven page: it queues what the
// page should show until a request drains it.
type feed struct {
	mu     sync.Mutex
	events []types.Event
	notify chan struct{}
}

func newFeed() *feed {
	return &feed{notify: make(chan struct{}, 1)}
}

func (f *feed) push(e types.Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// drain returns and forgets the queued events.
func (f *feed) drain() []types.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.events
	f.events = nil
	if out == nil {
		out = []types.Event{}
	}
	return out
}

func (f *feed) AppendBubble(e store.Entry) {
	entry := e
	f.push(types.Event{Type: types.EventBubble, Entry: &entry, HTML: render.Bubble(e)})
}

func (f *feed) ShowTyping() {
	f.push(types.Event{Type: types.EventTyping, HTML: render.Typing()})
}

func (f *feed) HideTyping() {
	f.push(types.Event{Type: types.EventTypingDone})
}

func (f *feed) SetHasConversation(v bool) {
	f.push(types.Event{Type: types.EventHasConversation, HasConversation: &v})
}

func (f *feed) FocusInput() {
	f.push(types.Event{Type: types.EventFocus})
}
