package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStateManager(t *testing.T) *StateManager {
	t.Helper()
	return NewStateManagerAt(filepath.Join(t.TempDir(), "workspace.json"))
}

func TestPersist_EmptyState(t *testing.T) {
	m := newTestStateManager(t)

	st, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.History) != 0 || len(st.Groups) != 0 {
		t.Fatalf("expected empty state, got %+v", st)
	}
}

func TestPersist_SaveAndLoad(t *testing.T) {
	m := newTestStateManager(t)

	closed := time.Now().Truncate(time.Second)
	ok := true
	input := PersistentState{
		History: []HistoryEntry{{
			ID:             "h1",
			SessionID:      "s1",
			Name:           "My Session",
			ConfigID:       "cfg-1",
			CreatedAt:      closed.Add(-time.Hour),
			ClosedAt:       &closed,
			WorkDir:        "/home/user/project",
			ExitedNormally: &ok,
		}},
		Groups: []Group{
			{ID: DefaultGroupID, Name: "Default", Order: 0},
			{ID: "g1", Name: "proj", Order: 1, Collapsed: true},
		},
		ActiveGroupID: "g1",
		TabGroupMap:   map[string]string{"s1": "g1"},
	}

	if err := m.Save(input); err != nil {
		t.Fatalf("save error: %v", err)
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if got.ActiveGroupID != "g1" {
		t.Errorf("activeGroupId = %q, want %q", got.ActiveGroupID, "g1")
	}
	if len(got.History) != 1 || got.History[0].Name != "My Session" {
		t.Errorf("unexpected history: %+v", got.History)
	}
	if got.History[0].ClosedAt == nil || !got.History[0].ClosedAt.Equal(closed) {
		t.Errorf("closedAt not round-tripped: %+v", got.History[0].ClosedAt)
	}
	if len(got.Groups) != 2 || !got.Groups[1].Collapsed {
		t.Errorf("unexpected groups: %+v", got.Groups)
	}
	if got.TabGroupMap["s1"] != "g1" {
		t.Errorf("tabGroupMap = %+v", got.TabGroupMap)
	}
}

func TestPersist_CorruptFileRecovery(t *testing.T) {
	m := newTestStateManager(t)

	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.filePath, []byte("{not json!!!"), 0600); err != nil {
		t.Fatal(err)
	}

	st, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error on corrupt file: %v", err)
	}
	if len(st.History) != 0 {
		t.Errorf("expected empty state from corrupt file, got %+v", st)
	}
}

func TestPersist_JSONFormat(t *testing.T) {
	m := newTestStateManager(t)

	if err := m.Save(PersistentState{TabGroupMap: map[string]string{}}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"history", "groups", "activeGroupId", "tabGroupMap"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing %q key in JSON", key)
		}
	}
	if _, ok := raw["tabs"]; ok {
		t.Error("live tabs must never be persisted")
	}
	if len(raw) != 4 {
		t.Errorf("persisted record must hold exactly 4 keys, got %d: %v", len(raw), raw)
	}
}

func TestPersist_SnapshotExcludesLiveState(t *testing.T) {
	w := New()
	g := w.CreateGroup("proj")
	if err := w.AddSession(Session{ID: "s1"}, g); err != nil {
		t.Fatal(err)
	}
	if err := w.SetActiveSession("s1"); err != nil {
		t.Fatal(err)
	}
	w.Buffers().Append("s1", "output")
	w.AddToHistory(HistoryEntry{SessionID: "s1", Name: "one"})

	st := w.SnapshotPersistent()

	if st.ActiveGroupID != g {
		t.Errorf("activeGroupId = %q, want %q", st.ActiveGroupID, g)
	}
	if st.TabGroupMap["s1"] != g {
		t.Errorf("tabGroupMap = %+v", st.TabGroupMap)
	}
	if len(st.History) != 1 {
		t.Errorf("history = %+v", st.History)
	}
}

func TestPersist_RestoreRepairsMissingDefault(t *testing.T) {
	w := New()
	w.RestorePersistent(PersistentState{
		Groups:        []Group{{ID: "g1", Name: "proj", Order: 3}},
		ActiveGroupID: "gone",
		TabGroupMap:   map[string]string{"orphan": "also-gone"},
	})

	if w.ActiveGroupID() != DefaultGroupID {
		t.Errorf("active group = %q, want default", w.ActiveGroupID())
	}
	found := false
	for _, g := range w.Groups() {
		if g.ID == DefaultGroupID {
			found = true
		}
	}
	if !found {
		t.Error("restore must re-create the default group")
	}
	if w.GroupOf("orphan") != DefaultGroupID {
		t.Errorf("orphaned mapping = %q, want default", w.GroupOf("orphan"))
	}
}

func TestPersist_RoundTripThroughWorkspace(t *testing.T) {
	m := newTestStateManager(t)

	w := New()
	g := w.CreateGroup("proj")
	if err := w.AddSession(Session{ID: "s1"}, g); err != nil {
		t.Fatal(err)
	}
	if err := w.SetActiveGroup(g); err != nil {
		t.Fatal(err)
	}
	w.AddToHistory(HistoryEntry{SessionID: "s1", Name: "one"})

	if err := m.Save(w.SnapshotPersistent()); err != nil {
		t.Fatal(err)
	}

	st, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	w2 := New()
	w2.RestorePersistent(st)

	if w2.ActiveGroupID() != g {
		t.Errorf("restored active group = %q, want %q", w2.ActiveGroupID(), g)
	}
	if len(w2.History()) != 1 {
		t.Errorf("restored history = %+v", w2.History())
	}
	if len(w2.Sessions()) != 0 {
		t.Error("live sessions must not be restored from disk")
	}
}
