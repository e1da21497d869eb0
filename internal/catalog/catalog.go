// Package catalog holds the ordered trigger-to-response table the assistant
// answers from.
//
// Order is load-bearing. Matching is plain substring containment and the
// first entry whose trigger appears in the query wins, so a trigger must
// come before any broader trigger it contains ("garden waste" before "bin",
// "parking fine" before "parking").
package catalog

import (
	"fmt"
	"strings"
)

// Link is the call-to-action rendered under an assistant reply.
type Link struct {
	Href  string `json:"href" yaml:"href"`
	Label string `json:"label" yaml:"label"`
}

// Entry is one catalog response. Text is display markup.
type Entry struct {
	Trigger string `yaml:"trigger,omitempty"`
	Text    string `yaml:"text"`
	Link    *Link  `yaml:"link,omitempty"`
}

// Catalog is an immutable ordered list of entries plus the fallback reply.
type Catalog struct {
	entries  []Entry
	fallback Entry
}

// New validates entries and keeps them in the given order.
func New(entries []Entry, fallback Entry) (*Catalog, error) {
	seen := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		trigger := strings.TrimSpace(e.Trigger)
		if trigger == "" {
			return nil, fmt.Errorf("entry %d: trigger is required", i)
		}
		if trigger != strings.ToLower(trigger) {
			return nil, fmt.Errorf("entry %d: trigger %q must be lowercase", i, trigger)
		}
		if trigger == "default" {
			return nil, fmt.Errorf("entry %d: %q is reserved for the fallback", i, trigger)
		}
		if prev, ok := seen[trigger]; ok {
			return nil, fmt.Errorf("entry %d: trigger %q already declared by entry %d", i, trigger, prev)
		}
		if strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("entry %d (%s): text is required", i, trigger)
		}
		if err := checkLink(e.Link); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, trigger, err)
		}
		seen[trigger] = i
		e.Trigger = trigger
		out = append(out, cloneEntry(e))
	}
	if strings.TrimSpace(fallback.Text) == "" {
		return nil, fmt.Errorf("default entry text is required")
	}
	if err := checkLink(fallback.Link); err != nil {
		return nil, fmt.Errorf("default entry: %w", err)
	}
	fallback.Trigger = "default"
	return &Catalog{entries: out, fallback: cloneEntry(fallback)}, nil
}

func checkLink(l *Link) error {
	if l == nil {
		return nil
	}
	if strings.TrimSpace(l.Href) == "" || strings.TrimSpace(l.Label) == "" {
		return fmt.Errorf("link needs both href and label")
	}
	return nil
}

// Match returns the first entry whose trigger is contained in the
// normalized (trimmed, lowercased) query.
func (c *Catalog) Match(normalized string) (Entry, bool) {
	for _, e := range c.entries {
		if strings.Contains(normalized, e.Trigger) {
			return cloneEntry(e), true
		}
	}
	return Entry{}, false
}

// Fallback is the reply for queries no trigger matches.
func (c *Catalog) Fallback() Entry {
	return cloneEntry(c.fallback)
}

// Entries returns a copy of the entries in evaluation order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

func (c *Catalog) Len() int { return len(c.entries) }

// Shadow describes a trigger that can never win because an earlier,
// shorter trigger is contained in it.
type Shadow struct {
	Trigger  string
	Position int
	By       string
	ByPos    int
}

func (s Shadow) String() string {
	return fmt.Sprintf("%q (#%d) is shadowed by %q (#%d)", s.Trigger, s.Position, s.By, s.ByPos)
}

// Shadowed lists every trigger that contains an earlier trigger. These are
// ordering mistakes in the table; they are reported, never reordered.
func (c *Catalog) Shadowed() []Shadow {
	var out []Shadow
	for i, later := range c.entries {
		for j := 0; j < i; j++ {
			if strings.Contains(later.Trigger, c.entries[j].Trigger) {
				out = append(out, Shadow{Trigger: later.Trigger, Position: i, By: c.entries[j].Trigger, ByPos: j})
				break
			}
		}
	}
	return out
}

func cloneEntry(e Entry) Entry {
	if e.Link != nil {
		l := *e.Link
		e.Link = &l
	}
	return e
}
