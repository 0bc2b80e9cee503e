package workspace

import (
	"time"

	"github.com/google/uuid"
)

// MaxHistoryEntries caps the session history ledger. Insertion is at the
// head; the oldest entries fall off the tail.
const MaxHistoryEntries = 50

// HistoryEntry is a durable record of a session's existence and outcome.
// It persists independently of the live session and its output buffer, and
// survives application restarts.
type HistoryEntry struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"sessionId"`
	Name           string     `json:"name"`
	ConfigID       string     `json:"configId"`
	ConfigName     string     `json:"configName,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	WorkDir        string     `json:"workDir,omitempty"`
	ExitedNormally *bool      `json:"exitedNormally,omitempty"`
}

// AddToHistory records a session at the head of the ledger and returns the
// locally generated entry id. When the cap is exceeded the oldest entries
// are dropped.
func (w *Workspace) AddToHistory(e HistoryEntry) string {
	w.mu.Lock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	w.history = append([]HistoryEntry{e}, w.history...)
	if len(w.history) > MaxHistoryEntries {
		w.history = w.history[:MaxHistoryEntries]
	}
	id := e.ID
	w.mu.Unlock()

	w.notify()
	return id
}

// FinalizeHistory stamps the most recent open entry for sessionID with its
// close time and exit outcome. No-op when the entry has already been evicted
// or finalized.
func (w *Workspace) FinalizeHistory(sessionID string, closedAt time.Time, exitedNormally bool) {
	w.mu.Lock()
	changed := false
	for i := range w.history {
		if w.history[i].SessionID == sessionID && w.history[i].ClosedAt == nil {
			t := closedAt
			ok := exitedNormally
			w.history[i].ClosedAt = &t
			w.history[i].ExitedNormally = &ok
			changed = true
			break
		}
	}
	w.mu.Unlock()

	if changed {
		w.notify()
	}
}

// History returns a snapshot of the ledger, most recent first.
func (w *Workspace) History() []HistoryEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]HistoryEntry, len(w.history))
	copy(out, w.history)
	return out
}
