package workspace

import (
	"time"

	"github.com/google/uuid"
)

// DefaultGroupID is the reserved group every workspace carries. It can never
// be deleted; sessions from deleted groups are re-parented here.
const DefaultGroupID = "default"

// Group is a named, ordered, collapsible container that partitions sessions.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	Collapsed bool      `json:"collapsed"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateGroup allocates a new group at the end of the display order and
// returns its id so the caller can focus it immediately.
func (w *Workspace) CreateGroup(name string) string {
	w.mu.Lock()
	order := 0
	for _, g := range w.groups {
		if g.Order >= order {
			order = g.Order + 1
		}
	}
	g := &Group{
		ID:        uuid.NewString(),
		Name:      name,
		Order:     order,
		CreatedAt: time.Now(),
	}
	w.groups = append(w.groups, g)
	id := g.ID
	w.mu.Unlock()

	w.notify()
	return id
}

// DeleteGroup removes a group, re-parenting all of its sessions to the
// default group in the same step. Deleting the default group is silently
// refused. If the deleted group was active, the cursor falls back to
// default.
func (w *Workspace) DeleteGroup(groupID string) {
	if groupID == DefaultGroupID {
		return
	}
	w.mu.Lock()
	idx := -1
	for i, g := range w.groups {
		if g.ID == groupID {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return
	}
	w.groups = append(w.groups[:idx], w.groups[idx+1:]...)
	for sid, gid := range w.tabGroup {
		if gid == groupID {
			w.tabGroup[sid] = DefaultGroupID
		}
	}
	if w.activeGroupID == groupID {
		w.activeGroupID = DefaultGroupID
	}
	w.mu.Unlock()

	w.notify()
}

// RenameGroup updates a group's display name.
func (w *Workspace) RenameGroup(groupID, name string) {
	w.mu.Lock()
	if g := w.findGroup(groupID); g != nil {
		g.Name = name
	}
	w.mu.Unlock()

	w.notify()
}

// SetCollapsed updates a group's collapsed view state.
func (w *Workspace) SetCollapsed(groupID string, collapsed bool) {
	w.mu.Lock()
	if g := w.findGroup(groupID); g != nil {
		g.Collapsed = collapsed
	}
	w.mu.Unlock()

	w.notify()
}

// Reorder recomputes the display order from the position of each id in the
// supplied sequence. Groups omitted from the sequence are dropped
// defensively, with their sessions re-parented to default; the default
// group itself is always retained.
func (w *Workspace) Reorder(orderedIDs []string) {
	w.mu.Lock()
	kept := make([]*Group, 0, len(w.groups))
	seen := make(map[string]bool, len(orderedIDs))
	for i, id := range orderedIDs {
		g := w.findGroup(id)
		if g == nil || seen[id] {
			continue
		}
		seen[id] = true
		g.Order = i
		kept = append(kept, g)
	}
	for _, g := range w.groups {
		if seen[g.ID] {
			continue
		}
		if g.ID == DefaultGroupID {
			g.Order = len(kept)
			kept = append(kept, g)
			seen[g.ID] = true
			continue
		}
		for sid, gid := range w.tabGroup {
			if gid == g.ID {
				w.tabGroup[sid] = DefaultGroupID
			}
		}
		if w.activeGroupID == g.ID {
			w.activeGroupID = DefaultGroupID
		}
	}
	w.groups = kept
	w.mu.Unlock()

	w.notify()
}

// SetActiveGroup moves the group cursor. When the target group holds at
// least one session and the current focus lies outside it, focus jumps to
// the group's first session so switching groups always lands on something
// visible.
func (w *Workspace) SetActiveGroup(groupID string) error {
	w.mu.Lock()
	if w.findGroup(groupID) == nil {
		w.mu.Unlock()
		return errUnknownGroup(groupID)
	}
	w.activeGroupID = groupID

	focusInGroup := w.activeSessionID != "" && w.tabGroup[w.activeSessionID] == groupID
	if !focusInGroup {
		for _, t := range w.tabs {
			if w.tabGroup[t.ID] == groupID {
				w.setActiveSessionLocked(t.ID)
				break
			}
		}
	}
	w.mu.Unlock()

	w.notify()
	return nil
}

// ActiveGroupID returns the active group cursor. It always references an
// existing group.
func (w *Workspace) ActiveGroupID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.findGroup(w.activeGroupID) == nil {
		return DefaultGroupID
	}
	return w.activeGroupID
}

// Groups returns a snapshot of all groups sorted by display order.
func (w *Workspace) Groups() []Group {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Group, 0, len(w.groups))
	for _, g := range w.groups {
		out = append(out, *g)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Order < out[j-1].Order; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (w *Workspace) findGroup(id string) *Group {
	for _, g := range w.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func defaultGroup() *Group {
	return &Group{
		ID:        DefaultGroupID,
		Name:      "Default",
		Order:     0,
		CreatedAt: time.Now(),
	}
}
