package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"council-assistant-backend/internal/catalog"
)

// TranscriptKey is the session item holding the serialized chat history.
const TranscriptKey = "council-chat-history"

type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Entry is one bubble of the chat history. Link is always encoded, as null
// when absent.
type Entry struct {
	Role Role          `json:"role"`
	Text string        `json:"text"`
	Link *catalog.Link `json:"link"`
}

// Transcript is the append-only chat history of a session, serialized as a
// JSON array under TranscriptKey. Concurrent appends for the same session
// are not coordinated; the last write wins.
type Transcript struct {
	storage SessionStorage
	logger  *zap.Logger
}

func NewTranscript(storage SessionStorage, logger *zap.Logger) *Transcript {
	return &Transcript{storage: storage, logger: logger}
}

// Load returns the session's history. A missing, unreadable or malformed
// value is an empty history, as is one with any entry of an unknown role.
func (t *Transcript) Load(ctx context.Context, sessionID string) []Entry {
	raw, ok, err := t.storage.GetItem(ctx, sessionID, TranscriptKey)
	if err != nil {
		t.logger.Warn("transcript read failed; treating as empty", zap.String("session", sessionID), zap.Error(err))
		return []Entry{}
	}
	if !ok {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.logger.Warn("malformed transcript; treating as empty", zap.String("session", sessionID), zap.Error(err))
		return []Entry{}
	}
	if entries == nil {
		return []Entry{}
	}
	for i, e := range entries {
		if e.Role != RoleUser && e.Role != RoleAI {
			t.logger.Warn("malformed transcript; treating as empty",
				zap.String("session", sessionID), zap.Int("entry", i), zap.String("role", string(e.Role)))
			return []Entry{}
		}
	}
	return entries
}

// Append adds e to the end of the session's history.
func (t *Transcript) Append(ctx context.Context, sessionID string, e Entry) error {
	entries := append(t.Load(ctx, sessionID), e)
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	if err := t.storage.SetItem(ctx, sessionID, TranscriptKey, string(b)); err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}
	return nil
}

// HasConversation reports whether anything has been said in the session.
func (t *Transcript) HasConversation(ctx context.Context, sessionID string) bool {
	return len(t.Load(ctx, sessionID)) > 0
}
