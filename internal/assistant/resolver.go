// Package assistant answers chat queries from the response catalog and
// carries the one piece of conversational context the chat has: whether the
// next message is expected to be a postcode.
package assistant

import (
	"fmt"
	"strings"

	"council-assistant-backend/internal/catalog"
)

type State int

const (
	StateNone State = iota
	StateAwaitingPostcode
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateAwaitingPostcode:
		return "awaiting_postcode"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState is the inverse of String.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return StateNone, nil
	case "awaiting_postcode":
		return StateAwaitingPostcode, nil
	}
	return StateNone, fmt.Errorf("unknown conversation state %q", s)
}

// WasteKeywords start the collection-day flow. They are checked before the
// catalog, so catalog entries containing them are only reachable by a
// different resolver.
var WasteKeywords = []string{"bin", "recycl", "rubbish", "waste", "collection"}

// Result is the reply to one query and the state for the next one.
type Result struct {
	Entry catalog.Entry
	Next  State
}

// Resolve picks the reply for raw given the current state. It never fails:
// unmatched queries get the catalog fallback.
func Resolve(c *catalog.Catalog, raw string, st State) Result {
	if st == StateAwaitingPostcode {
		postcode := strings.ToUpper(strings.TrimSpace(raw))
		return Result{Entry: scheduleEntry(postcode), Next: StateNone}
	}

	q := strings.ToLower(strings.TrimSpace(raw))
	if containsAny(q, WasteKeywords) {
		return Result{Entry: askPostcodeEntry(), Next: StateAwaitingPostcode}
	}
	if e, ok := c.Match(q); ok {
		return Result{Entry: e, Next: st}
	}
	return Result{Entry: c.Fallback(), Next: st}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Resolver resolves against whatever catalog the holder has at call time.
type Resolver struct {
	catalogs *catalog.Holder
}

func NewResolver(h *catalog.Holder) *Resolver {
	return &Resolver{catalogs: h}
}

func (r *Resolver) Resolve(raw string, st State) Result {
	return Resolve(r.catalogs.Get(), raw, st)
}
