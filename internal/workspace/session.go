package workspace

// Session is a live terminal tab. It exists only while the tab is open;
// durable records live in the history ledger instead.
type Session struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ConfigID   string `json:"configId"`
	ConfigName string `json:"configName,omitempty"`
	IsRunning  bool   `json:"isRunning"`
}

// SessionUpdate carries a partial update for a live session. Nil fields are
// left untouched.
type SessionUpdate struct {
	Name       *string
	ConfigID   *string
	ConfigName *string
	IsRunning  *bool
}

// AddSession inserts a new live session and maps it to groupID, or to the
// active group when groupID is empty. The caller allocates session IDs from
// the backend, so duplicates indicate a programming error and are rejected.
func (w *Workspace) AddSession(s Session, groupID string) error {
	w.mu.Lock()
	if w.findSession(s.ID) != nil {
		w.mu.Unlock()
		return errDuplicateSession(s.ID)
	}
	if groupID == "" || w.findGroup(groupID) == nil {
		groupID = w.activeGroupID
	}
	cp := s
	w.tabs = append(w.tabs, &cp)
	// The group map is total: every session gets an explicit mapping at
	// insertion time, never a lookup-time fallback.
	w.tabGroup[s.ID] = groupID
	w.mu.Unlock()

	w.notify()
	return nil
}

// RemoveSession deletes a live session, its group mapping, and its output
// buffer. When the removed session was focused, focus moves to the sibling
// that followed it in the same group (or the one before it when it was
// last), and only becomes empty when the group has no sessions left.
func (w *Workspace) RemoveSession(sessionID string) {
	w.mu.Lock()
	idx := -1
	for i, t := range w.tabs {
		if t.ID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return
	}

	wasActive := w.activeSessionID == sessionID
	groupID := w.tabGroup[sessionID]

	w.tabs = append(w.tabs[:idx], w.tabs[idx+1:]...)
	delete(w.tabGroup, sessionID)

	if wasActive {
		w.activeSessionID = ""
		if next := w.siblingAfterLocked(idx, groupID); next != "" {
			w.setActiveSessionLocked(next)
		}
	}
	w.mu.Unlock()

	w.buffers.Clear(sessionID)
	w.notify()
}

// siblingAfterLocked picks the replacement focus after removing the session
// that sat at removedIdx in groupID: the next tab in the same group, else
// the closest earlier one.
func (w *Workspace) siblingAfterLocked(removedIdx int, groupID string) string {
	for i := removedIdx; i < len(w.tabs); i++ {
		if w.tabGroup[w.tabs[i].ID] == groupID {
			return w.tabs[i].ID
		}
	}
	for i := removedIdx - 1; i >= 0; i-- {
		if w.tabGroup[w.tabs[i].ID] == groupID {
			return w.tabs[i].ID
		}
	}
	return ""
}

// SetActiveSession focuses a session. Focusing always brings the session's
// group into view, so the active group cursor follows. An empty id clears
// focus.
func (w *Workspace) SetActiveSession(sessionID string) error {
	w.mu.Lock()
	if sessionID != "" && w.findSession(sessionID) == nil {
		w.mu.Unlock()
		return errUnknownSession(sessionID)
	}
	w.setActiveSessionLocked(sessionID)
	w.mu.Unlock()

	w.notify()
	return nil
}

func (w *Workspace) setActiveSessionLocked(sessionID string) {
	w.activeSessionID = sessionID
	if sessionID == "" {
		return
	}
	gid := w.tabGroup[sessionID]
	if w.findGroup(gid) == nil {
		gid = DefaultGroupID
	}
	w.activeGroupID = gid
}

// UpdateSession merges the non-nil fields of upd into the session.
func (w *Workspace) UpdateSession(sessionID string, upd SessionUpdate) {
	w.mu.Lock()
	s := w.findSession(sessionID)
	if s == nil {
		w.mu.Unlock()
		return
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.ConfigID != nil {
		s.ConfigID = *upd.ConfigID
	}
	if upd.ConfigName != nil {
		s.ConfigName = *upd.ConfigName
	}
	if upd.IsRunning != nil {
		s.IsRunning = *upd.IsRunning
	}
	w.mu.Unlock()

	w.notify()
}

// MoveToGroup reassigns a session's group membership without touching the
// focus cursors.
func (w *Workspace) MoveToGroup(sessionID, groupID string) error {
	w.mu.Lock()
	if w.findSession(sessionID) == nil {
		w.mu.Unlock()
		return errUnknownSession(sessionID)
	}
	if w.findGroup(groupID) == nil {
		w.mu.Unlock()
		return errUnknownGroup(groupID)
	}
	w.tabGroup[sessionID] = groupID
	w.mu.Unlock()

	w.notify()
	return nil
}

// Sessions returns a snapshot of all live sessions in insertion order.
func (w *Workspace) Sessions() []Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Session, 0, len(w.tabs))
	for _, t := range w.tabs {
		out = append(out, *t)
	}
	return out
}

// SessionsInGroup returns the sessions mapped to groupID, insertion order.
func (w *Workspace) SessionsInGroup(groupID string) []Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Session
	for _, t := range w.tabs {
		if w.tabGroup[t.ID] == groupID {
			out = append(out, *t)
		}
	}
	return out
}

// GetSession returns a copy of the session and whether it exists.
func (w *Workspace) GetSession(sessionID string) (Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s := w.findSession(sessionID); s != nil {
		return *s, true
	}
	return Session{}, false
}

// GroupOf returns the group a session is mapped to.
func (w *Workspace) GroupOf(sessionID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tabGroup[sessionID]
}

// ActiveSessionID returns the focused session id, or "" when none.
func (w *Workspace) ActiveSessionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeSessionID
}

func (w *Workspace) findSession(id string) *Session {
	for _, t := range w.tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}
