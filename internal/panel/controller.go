// Package panel drives the chat panel of one page load: opening and closing,
// replaying the session transcript, and the simulated typing delay before
// each assistant reply.
package panel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"council-assistant-backend/internal/assistant"
	"council-assistant-backend/internal/store"
)

type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// CloseReason names the affordance that closed the panel, or CloseExpired
// when the registry evicted it.
type CloseReason string

const (
	CloseButton  CloseReason = "button"
	CloseOutside CloseReason = "outside"
	CloseEscape  CloseReason = "escape"
	CloseExpired CloseReason = "expired"
)

var (
	ErrClosed     = errors.New("panel is closed")
	ErrSuperseded = errors.New("reply superseded")
	ErrNotFound   = errors.New("panel not found")
)

// Renderer is the visible surface of the panel. Methods are called with the
// controller's lock held and must not call back into the controller.
type Renderer interface {
	AppendBubble(store.Entry)
	ShowTyping()
	HideTyping()
	SetHasConversation(bool)
	FocusInput()
}

type Options struct {
	TypingDelay         time.Duration
	FocusDelay          time.Duration
	SuggestionOpenDelay time.Duration
}

type Deps struct {
	Resolver   *assistant.Resolver
	Transcript *store.Transcript
	Logger     *zap.Logger
	Options    Options
}

// Exchange is a completed query and reply.
type Exchange struct {
	User  store.Entry
	Reply store.Entry
	Next  assistant.State
}

// Controller is the panel of one page load. The conversation state lives
// here only, so a new page starts over at StateNone while the transcript
// carries on.
type Controller struct {
	id        string
	sessionID string
	deps      Deps
	renderer  Renderer
	logger    *zap.Logger

	mu      sync.Mutex
	state   State
	conv    assistant.State
	visible int
	focus   *time.Timer
	// pending is closed to drop the reply currently being "typed".
	pending chan struct{}
}

func New(id, sessionID string, deps Deps, r Renderer) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		id:        id,
		sessionID: sessionID,
		deps:      deps,
		renderer:  r,
		logger:    logger.With(zap.String("panel", id)),
	}
}

func (c *Controller) ID() string         { return c.id }
func (c *Controller) SessionID() string  { return c.sessionID }
func (c *Controller) Renderer() Renderer { return c.renderer }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Conversation is the state the next query will be resolved with.
func (c *Controller) Conversation() assistant.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv
}

// Visible is the number of bubbles shown on this page.
func (c *Controller) Visible() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Open shows the panel. The first open on a page replays the session's
// transcript; later opens leave the visible bubbles as they are.
func (c *Controller) Open(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(ctx)
}

func (c *Controller) openLocked(ctx context.Context) {
	if c.state == Open {
		return
	}
	c.state = Open
	if c.visible == 0 {
		entries := c.deps.Transcript.Load(ctx, c.sessionID)
		for _, e := range entries {
			c.renderer.AppendBubble(e)
			c.visible++
		}
		c.logger.Debug("panel opened", zap.Int("replayed", len(entries)))
	}
	if c.focus != nil {
		c.focus.Stop()
	}
	c.focus = time.AfterFunc(c.deps.Options.FocusDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == Open {
			c.renderer.FocusInput()
		}
	})
}

// Close hides the panel and forgets any half-finished conversation flow.
// The transcript is untouched. It reports whether the panel was open.
func (c *Controller) Close(reason CloseReason) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return false
	}
	c.state = Closed
	c.conv = assistant.StateNone
	if c.focus != nil {
		c.focus.Stop()
		c.focus = nil
	}
	c.dropPendingLocked()
	c.logger.Debug("panel closed", zap.String("reason", string(reason)))
	return true
}

// Submit sends a typed query. Blank input is ignored and returns nil, nil.
// The reply arrives after the typing delay; closing the panel or sending
// another query before then drops it with ErrSuperseded.
func (c *Controller) Submit(ctx context.Context, query string) (*Exchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	cancel, user := c.beginLocked(ctx, query)
	c.mu.Unlock()
	return c.await(ctx, query, user, cancel)
}

// Suggest sends a suggestion chip's query, opening the panel first when it
// is closed.
func (c *Controller) Suggest(ctx context.Context, query string) (*Exchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	c.mu.Lock()
	if c.state == Closed {
		c.openLocked(ctx)
		c.mu.Unlock()
		if err := sleep(ctx, c.deps.Options.SuggestionOpenDelay); err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.state != Open {
			c.mu.Unlock()
			return nil, ErrClosed
		}
	}
	cancel, user := c.beginLocked(ctx, query)
	c.mu.Unlock()
	return c.await(ctx, query, user, cancel)
}

func (c *Controller) beginLocked(ctx context.Context, query string) (chan struct{}, store.Entry) {
	user := store.Entry{Role: store.RoleUser, Text: query}
	c.persist(ctx, user)
	c.renderer.AppendBubble(user)
	c.visible++

	c.dropPendingLocked()
	cancel := make(chan struct{})
	c.pending = cancel
	c.renderer.ShowTyping()
	return cancel, user
}

func (c *Controller) await(ctx context.Context, query string, user store.Entry, cancel chan struct{}) (*Exchange, error) {
	timer := time.NewTimer(c.deps.Options.TypingDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-cancel:
		return nil, ErrSuperseded
	case <-ctx.Done():
		c.mu.Lock()
		if c.pending == cancel {
			c.dropPendingLocked()
		}
		c.mu.Unlock()
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != cancel {
		return nil, ErrSuperseded
	}
	c.pending = nil

	res := c.deps.Resolver.Resolve(query, c.conv)
	c.conv = res.Next
	c.renderer.HideTyping()

	reply := store.Entry{Role: store.RoleAI, Text: res.Entry.Text, Link: res.Entry.Link}
	c.persist(ctx, reply)
	c.renderer.AppendBubble(reply)
	c.visible++
	c.renderer.SetHasConversation(c.deps.Transcript.HasConversation(ctx, c.sessionID))

	c.logger.Debug("reply sent", zap.String("trigger", res.Entry.Trigger), zap.Stringer("next", res.Next))
	return &Exchange{User: user, Reply: reply, Next: res.Next}, nil
}

// dropPendingLocked invalidates the reply being typed, if any.
func (c *Controller) dropPendingLocked() {
	if c.pending == nil {
		return
	}
	close(c.pending)
	c.pending = nil
	c.renderer.HideTyping()
}

// persist saves e; a storage failure costs history, not the reply.
func (c *Controller) persist(ctx context.Context, e store.Entry) {
	if err := c.deps.Transcript.Append(ctx, c.sessionID, e); err != nil {
		c.logger.Warn("transcript append failed", zap.String("role", string(e.Role)), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
