package panel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"council-assistant-backend/internal/assistant"
	"council-assistant-backend/internal/catalog"
	"council-assistant-backend/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu      sync.Mutex
	bubbles []store.Entry
	typing  bool
	shows   int
	hides   int
	focused int
	has     []bool
}

func (r *recorder) AppendBubble(e store.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bubbles = append(r.bubbles, e)
}

func (r *recorder) ShowTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing = true
	r.shows++
}

func (r *recorder) HideTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing = false
	r.hides++
}

func (r *recorder) SetHasConversation(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.has = append(r.has, v)
}

func (r *recorder) FocusInput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused++
}

func (r *recorder) snapshot() []store.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Entry(nil), r.bubbles...)
}

func (r *recorder) isTyping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typing
}

type harness struct {
	deps       Deps
	transcript *store.Transcript
}

func newHarness(typing time.Duration) *harness {
	tr := store.NewTranscript(store.NewMemoryStore(0), zap.NewNop())
	return &harness{
		transcript: tr,
		deps: Deps{
			Resolver:   assistant.NewResolver(catalog.NewHolder(catalog.Default())),
			Transcript: tr,
			Logger:     zap.NewNop(),
			Options: Options{
				TypingDelay:         typing,
				FocusDelay:          time.Millisecond,
				SuggestionOpenDelay: time.Millisecond,
			},
		},
	}
}

func (h *harness) page(id string) (*Controller, *recorder) {
	r := &recorder{}
	return New(id, "sess-1", h.deps, r), r
}

func TestSubmit_CollectionDayFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(time.Millisecond)
	c, r := h.page("p1")
	c.Open(ctx)
	defer c.Close(CloseButton)

	ex, err := c.Submit(ctx, "What day is my bin collected")
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Nil(t, ex.Reply.Link)
	assert.Equal(t, assistant.StateAwaitingPostcode, c.Conversation())

	ex, err = c.Submit(ctx, "  hp11 2pg ")
	require.NoError(t, err)
	assert.Contains(t, ex.Reply.Text, "HP11 2PG")
	assert.Equal(t, assistant.StateNone, c.Conversation())

	bubbles := r.snapshot()
	require.Len(t, bubbles, 4)
	assert.Equal(t, store.RoleUser, bubbles[0].Role)
	assert.Equal(t, store.RoleAI, bubbles[1].Role)
	assert.Equal(t, "hp11 2pg", bubbles[2].Text, "user text is trimmed, not uppercased")
	assert.Equal(t, bubbles, h.transcript.Load(ctx, "sess-1"))
	assert.Equal(t, []bool{true, true}, r.has)
	assert.False(t, r.isTyping())
}

func TestSubmit_IgnoresBlankAndRequiresOpen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(time.Millisecond)
	c, r := h.page("p1")

	_, err := c.Submit(ctx, "blue badge")
	assert.ErrorIs(t, err, ErrClosed)

	c.Open(ctx)
	defer c.Close(CloseButton)
	ex, err := c.Submit(ctx, "   \t ")
	require.NoError(t, err)
	assert.Nil(t, ex)
	assert.Empty(t, r.snapshot())
	assert.Empty(t, h.transcript.Load(ctx, "sess-1"))
}

func TestOpen_ReplayOncePerPage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(time.Millisecond)

	first, r1 := h.page("p1")
	first.Open(ctx)
	_, err := first.Submit(ctx, "I need a blue badge")
	require.NoError(t, err)
	require.True(t, first.Close(CloseButton))

	// Reopening on the same page does not duplicate.
	first.Open(ctx)
	assert.Len(t, r1.snapshot(), 2)
	first.Open(ctx)
	assert.Len(t, r1.snapshot(), 2)
	first.Close(CloseEscape)

	// Another page in the same session replays the whole transcript once.
	second, r2 := h.page("p2")
	second.Open(ctx)
	second.Close(CloseOutside)
	second.Open(ctx)
	defer second.Close(CloseButton)

	assert.Equal(t, r1.snapshot(), r2.snapshot())
	assert.Equal(t, 2, second.Visible())
}

func TestNewPage_ResetsConversationButKeepsTranscript(t *testing.T) {
	ctx := context.Background()
	h := newHarness(time.Millisecond)

	first, _ := h.page("p1")
	first.Open(ctx)
	_, err := first.Submit(ctx, "when are bins collected")
	require.NoError(t, err)
	assert.Equal(t, assistant.StateAwaitingPostcode, first.Conversation())
	first.Close(CloseButton)

	second, _ := h.page("p2")
	second.Open(ctx)
	defer second.Close(CloseButton)
	assert.Equal(t, assistant.StateNone, second.Conversation())

	ex, err := second.Submit(ctx, "HP11 2PG")
	require.NoError(t, err)
	require.NotNil(t, ex.Reply.Link)
	assert.Equal(t, "/all-services/", ex.Reply.Link.Href)
	assert.NotContains(t, ex.Reply.Text, "HP11 2PG", "postcode flow does not survive navigation")
	assert.Len(t, h.transcript.Load(ctx, "sess-1"), 4)
}

func TestClose_ResetsStateAndDropsPendingReply(t *testing.T) {
	ctx := context.Background()
	h := newHarness(time.Millisecond)
	c, _ := h.page("p1")
	c.Open(ctx)
	_, err := c.Submit(ctx, "rubbish")
	require.NoError(t, err)
	require.Equal(t, assistant.StateAwaitingPostcode, c.Conversation())

	assert.True(t, c.Close(CloseEscape))
	assert.False(t, c.Close(CloseEscape), "escape while closed does nothing")
	assert.Equal(t, assistant.StateNone, c.Conversation())
	assert.Len(t, h.transcript.Load(ctx, "sess-1"), 2, "closing keeps the transcript")

	// Close during the typing delay.
	slow := newHarness(time.Second)
	p, r := slow.page("p2")
	p.Open(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(ctx, "blue badge")
		done <- err
	}()
	require.Eventually(t, r.isTyping, time.Second, time.Millisecond)
	p.Close(CloseButton)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("pending reply was not dropped on close")
	}
	assert.False(t, r.isTyping())
	entries := slow.transcript.Load(ctx, "sess-1")
	require.Len(t, entries, 1, "only the user entry is persisted")
	assert.Equal(t, store.RoleUser, entries[0].Role)
}

func TestSubmit_NewQuerySupersedesPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(200 * time.Millisecond)
	c, r := h.page("p1")
	c.Open(ctx)
	defer c.Close(CloseButton)

	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx, "council tax")
		firstErr <- err
	}()
	require.Eventually(t, r.isTyping, time.Second, time.Millisecond)

	ex, err := c.Submit(ctx, "pothole")
	require.NoError(t, err)
	assert.Contains(t, ex.Reply.Text, "pothole")
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)

	roles := []store.Role{}
	for _, e := range h.transcript.Load(ctx, "sess-1") {
		roles = append(roles, e.Role)
	}
	assert.Equal(t, []store.Role{store.RoleUser, store.RoleUser, store.RoleAI}, roles)
}

func TestSubmit_ContextCancelled(t *testing.T) {
	h := newHarness(time.Second)
	c, r := h.page("p1")
	c.Open(context.Background())
	defer c.Close(CloseButton)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Submit(ctx, "blue badge")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, r.isTyping())
}

func TestSuggest_OpensClosedPanel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(time.Millisecond)
	c, r := h.page("p1")

	ex, err := c.Suggest(ctx, "Pay council tax")
	require.NoError(t, err)
	defer c.Close(CloseButton)

	assert.Equal(t, Open, c.State())
	assert.Contains(t, ex.Reply.Text, "council tax")
	assert.Len(t, r.snapshot(), 2)

	ex, err = c.Suggest(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, ex)
}

func TestOpen_FocusesInputAfterDelay(t *testing.T) {
	h := newHarness(time.Millisecond)
	c, r := h.page("p1")
	c.Open(context.Background())
	defer c.Close(CloseButton)

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.focused == 1
	}, time.Second, time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "closed", Closed.String())
}
