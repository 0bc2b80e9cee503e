// Package workspace holds the shared state behind the multi-session
// terminal UI: the live session directory, the group registry, the
// per-session output buffers, and the bounded session history.
//
// All state is owned by an explicit Workspace instance handed to the
// components that need it. Mutations are serialized by a single mutex so
// the append-ordering guarantees hold even though callers arrive from
// multiple goroutines (PTY read loops, frontend bindings, timers).
package workspace

import (
	"fmt"
	"sync"
)

// Workspace is the single source of truth for open sessions, their group
// partitioning, the focus cursors, and the session history ledger.
type Workspace struct {
	mu              sync.Mutex
	tabs            []*Session
	tabGroup        map[string]string // total: every live session has an entry
	groups          []*Group
	history         []HistoryEntry
	activeSessionID string
	activeGroupID   string

	buffers *OutputBuffers

	listenerMu sync.Mutex
	listeners  []func()
}

// New creates a workspace holding only the default group.
func New() *Workspace {
	return &Workspace{
		tabGroup:      make(map[string]string),
		groups:        []*Group{defaultGroup()},
		activeGroupID: DefaultGroupID,
		buffers:       NewOutputBuffers(0),
	}
}

// Buffers returns the output buffer store shared with terminal controllers.
func (w *Workspace) Buffers() *OutputBuffers {
	return w.buffers
}

// OnChange registers a listener invoked after every state mutation.
// Listeners run outside the workspace lock and may call back into the
// workspace.
func (w *Workspace) OnChange(fn func()) {
	w.listenerMu.Lock()
	defer w.listenerMu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *Workspace) notify() {
	w.listenerMu.Lock()
	ls := make([]func(), len(w.listeners))
	copy(ls, w.listeners)
	w.listenerMu.Unlock()
	for _, fn := range ls {
		fn()
	}
}

// PersistentState is the durable slice of workspace state. Live tabs, the
// active session cursor, and output buffers are process-lifetime-only and
// deliberately absent: sessions are rebuilt by reopening them.
type PersistentState struct {
	History       []HistoryEntry    `json:"history"`
	Groups        []Group           `json:"groups"`
	ActiveGroupID string            `json:"activeGroupId"`
	TabGroupMap   map[string]string `json:"tabGroupMap"`
}

// SnapshotPersistent captures the durable state for writing to disk.
func (w *Workspace) SnapshotPersistent() PersistentState {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := PersistentState{
		History:       make([]HistoryEntry, len(w.history)),
		Groups:        make([]Group, 0, len(w.groups)),
		ActiveGroupID: w.activeGroupID,
		TabGroupMap:   make(map[string]string, len(w.tabGroup)),
	}
	copy(st.History, w.history)
	for _, g := range w.groups {
		st.Groups = append(st.Groups, *g)
	}
	for sid, gid := range w.tabGroup {
		st.TabGroupMap[sid] = gid
	}
	return st
}

// RestorePersistent loads durable state saved by a previous run. The
// default group and active-group cursor are repaired if the stored state
// lacks them.
func (w *Workspace) RestorePersistent(st PersistentState) {
	w.mu.Lock()
	w.history = make([]HistoryEntry, len(st.History))
	copy(w.history, st.History)
	if len(w.history) > MaxHistoryEntries {
		w.history = w.history[:MaxHistoryEntries]
	}

	w.groups = nil
	hasDefault := false
	for _, g := range st.Groups {
		cp := g
		w.groups = append(w.groups, &cp)
		if g.ID == DefaultGroupID {
			hasDefault = true
		}
	}
	if !hasDefault {
		w.groups = append([]*Group{defaultGroup()}, w.groups...)
	}

	w.tabGroup = make(map[string]string, len(st.TabGroupMap))
	for sid, gid := range st.TabGroupMap {
		if w.findGroup(gid) == nil {
			gid = DefaultGroupID
		}
		w.tabGroup[sid] = gid
	}

	w.activeGroupID = st.ActiveGroupID
	if w.findGroup(w.activeGroupID) == nil {
		w.activeGroupID = DefaultGroupID
	}
	w.mu.Unlock()

	w.notify()
}

func errDuplicateSession(id string) error {
	return fmt.Errorf("session %s already exists", id)
}

func errUnknownSession(id string) error {
	return fmt.Errorf("session %s not found", id)
}

func errUnknownGroup(id string) error {
	return fmt.Errorf("group %s not found", id)
}
