package panel

import (
	"sync"
	"time"
)

// Registry tracks the live panels, one per page load. A panel is only
// reachable from the session that created it and is dropped once idle for
// longer than the TTL.
type Registry struct {
	mu     sync.Mutex
	panels map[string]*registered
	ttl    time.Duration
	now    func() time.Time
}

type registered struct {
	ctrl     *Controller
	lastUsed time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		panels: make(map[string]*registered),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *Registry) Add(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels[c.ID()] = &registered{ctrl: c, lastUsed: r.now()}
}

// Get returns the panel if it exists and belongs to sessionID.
func (r *Registry) Get(panelID, sessionID string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panels[panelID]
	if !ok || p.ctrl.SessionID() != sessionID {
		return nil, ErrNotFound
	}
	if r.ttl > 0 && r.now().Sub(p.lastUsed) > r.ttl {
		delete(r.panels, panelID)
		p.ctrl.Close(CloseExpired)
		return nil, ErrNotFound
	}
	p.lastUsed = r.now()
	return p.ctrl, nil
}

// Sweep closes and forgets idle panels, returning how many went.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	var idle []*Controller
	now := r.now()
	for id, p := range r.panels {
		if now.Sub(p.lastUsed) > r.ttl {
			idle = append(idle, p.ctrl)
			delete(r.panels, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close(CloseExpired)
	}
	return len(idle)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.panels)
}
