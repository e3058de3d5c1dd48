// Package conversation keeps a bounded window of recent dialogue turns
// per owner, used as generation context. Process-lifetime only.
package conversation

import "sync"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Tracker holds up to maxTurns turns per owner. Append evicts the oldest
// turn once the window is full; Recent returns oldest first. Each owner's
// window carries its own lock; the registry lock is only held long enough
// to look the window up, so appends for different owners never contend.
type Tracker struct {
	maxTurns int

	mu      sync.RWMutex
	windows map[string]*ownerWindow
}

type ownerWindow struct {
	mu    sync.Mutex
	turns []Turn
}

func NewTracker(maxTurns int) *Tracker {
	if maxTurns <= 0 {
		maxTurns = 6
	}
	return &Tracker{
		maxTurns: maxTurns,
		windows:  make(map[string]*ownerWindow),
	}
}

func (t *Tracker) window(owner string, create bool) *ownerWindow {
	t.mu.RLock()
	w := t.windows[owner]
	t.mu.RUnlock()
	if w != nil || !create {
		return w
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if w = t.windows[owner]; w == nil {
		w = &ownerWindow{}
		t.windows[owner] = w
	}
	return w
}

func (t *Tracker) Append(owner, role, text string) {
	w := t.window(owner, true)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, Turn{Role: role, Text: text})
	if len(w.turns) > t.maxTurns {
		w.turns = w.turns[len(w.turns)-t.maxTurns:]
	}
}

func (t *Tracker) Recent(owner string) []Turn {
	w := t.window(owner, false)
	if w == nil {
		return []Turn{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

func (t *Tracker) Clear(owner string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, owner)
}
