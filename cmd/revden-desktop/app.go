package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/revden/revden/internal/config"
	"github.com/revden/revden/internal/terminal"
	"github.com/revden/revden/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "0.1.0-dev"

// App struct holds the application state: the shared workspace stores, the
// PTY backend, and one terminal controller per open session.
type App struct {
	ctx      context.Context
	ws       *workspace.Workspace
	state    *workspace.StateManager
	backend  *terminal.PTYBackend
	settings *config.Manager
	watcher  *config.Watcher

	ctrlMu      sync.Mutex
	controllers map[string]*terminal.Controller
	surfaces    map[string]*eventSurface

	saveDebounced func(func())
}

// NewApp creates a new App application struct.
func NewApp() *App {
	return &App{
		ws:            workspace.New(),
		state:         workspace.NewStateManager(),
		backend:       terminal.NewPTYBackend(),
		settings:      config.NewManager(),
		controllers:   make(map[string]*terminal.Controller),
		surfaces:      make(map[string]*eventSurface),
		saveDebounced: debounce.New(500 * time.Millisecond),
	}
}

// startup is called when the app starts.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	st, err := a.state.Load()
	if err != nil {
		log.Printf("[app] loading workspace state failed: %v", err)
	}
	a.ws.RestorePersistent(st)

	a.ws.OnChange(func() {
		if a.ctx != nil {
			wailsRuntime.EventsEmit(a.ctx, "workspace:changed")
		}
		a.saveDebounced(a.saveState)
	})

	w, err := config.WatchConfig(a.settings, func(cfg *config.DesktopConfig) {
		if a.ctx != nil {
			wailsRuntime.EventsEmit(a.ctx, "settings:changed", a.terminalSettingsMap(cfg))
		}
	})
	if err != nil {
		log.Printf("[app] config watcher unavailable: %v", err)
	} else {
		a.watcher = w
	}
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.ctrlMu.Lock()
	for _, c := range a.controllers {
		c.Detach()
	}
	a.ctrlMu.Unlock()
	a.backend.CloseAll()
	a.saveState()
}

func (a *App) saveState() {
	if err := a.state.Save(a.ws.SnapshotPersistent()); err != nil {
		log.Printf("[app] saving workspace state failed: %v", err)
	}
}

// GetVersion returns the application version.
func (a *App) GetVersion() string {
	return Version
}

// ==================== Session Lifecycle ====================

// OpenSessionRequest describes a new terminal session.
type OpenSessionRequest struct {
	Name       string   `json:"name"`
	ConfigID   string   `json:"configId"`
	ConfigName string   `json:"configName"`
	Command    string   `json:"command"` // empty spawns the login shell
	Args       []string `json:"args"`
	WorkDir    string   `json:"workDir"`
	GroupID    string   `json:"groupId"` // empty uses the active group
	Cols       int      `json:"cols"`
	Rows       int      `json:"rows"`
}

// OpenSession spawns a new PTY session, registers it in the workspace,
// records a history entry, and attaches a terminal controller to it.
// The new session becomes the focused one.
func (a *App) OpenSession(req OpenSessionRequest) (workspace.Session, error) {
	sessionID := uuid.NewString()
	s := workspace.Session{
		ID:         sessionID,
		Name:       req.Name,
		ConfigID:   req.ConfigID,
		ConfigName: req.ConfigName,
		IsRunning:  true,
	}
	if err := a.ws.AddSession(s, req.GroupID); err != nil {
		return workspace.Session{}, err
	}

	a.ws.AddToHistory(workspace.HistoryEntry{
		SessionID:  sessionID,
		Name:       req.Name,
		ConfigID:   req.ConfigID,
		ConfigName: req.ConfigName,
		WorkDir:    req.WorkDir,
	})

	surface := newEventSurface(a.ctx, sessionID)
	surface.setSize(req.Rows, req.Cols)
	ctrl := terminal.NewController(sessionID, a.backend, surface, a.ws, terminal.Hooks{
		OnClosed: func(exitedNormally bool) { a.onSessionClosed(sessionID, exitedNormally) },
		OnError:  func(msg string) { a.onSessionError(sessionID, msg) },
	}, terminal.Options{})

	a.ctrlMu.Lock()
	a.controllers[sessionID] = ctrl
	a.surfaces[sessionID] = surface
	a.ctrlMu.Unlock()

	// Subscribe before spawn so no output is missed.
	ctrl.Attach()

	if err := a.backend.Spawn(sessionID, terminal.SpawnOptions{
		Command: req.Command,
		Args:    req.Args,
		WorkDir: req.WorkDir,
		Cols:    req.Cols,
		Rows:    req.Rows,
	}); err != nil {
		a.dropController(sessionID)
		a.ws.RemoveSession(sessionID)
		a.ws.FinalizeHistory(sessionID, time.Now(), false)
		return workspace.Session{}, err
	}

	if err := a.ws.SetActiveSession(sessionID); err != nil {
		log.Printf("[app] focusing new session failed: %v", err)
	}
	a.updateActiveControllers()
	return s, nil
}

// CloseSession terminates a session's process. The closed event coming back
// from the backend finalizes history and removes the live entry.
func (a *App) CloseSession(sessionID string) error {
	return a.backend.Close(sessionID)
}

// onSessionClosed finalizes the session's history entry and retires the
// live tab. The controller has already marked the session not-running and
// rendered the close notice.
func (a *App) onSessionClosed(sessionID string, exitedNormally bool) {
	a.ws.FinalizeHistory(sessionID, time.Now(), exitedNormally)
	a.dropController(sessionID)
	a.ws.RemoveSession(sessionID)
	a.updateActiveControllers()
}

func (a *App) onSessionError(sessionID string, msg string) {
	log.Printf("[app] session %s error: %s", sessionID, msg)
	emitToast(a.ctx, fmt.Sprintf("Session error: %s", msg), "error")
}

func (a *App) dropController(sessionID string) {
	a.ctrlMu.Lock()
	ctrl := a.controllers[sessionID]
	delete(a.controllers, sessionID)
	delete(a.surfaces, sessionID)
	a.ctrlMu.Unlock()
	if ctrl != nil {
		ctrl.Detach()
	}
}

func (a *App) controller(sessionID string) *terminal.Controller {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	return a.controllers[sessionID]
}

func (a *App) surface(sessionID string) *eventSurface {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	return a.surfaces[sessionID]
}

// updateActiveControllers marks only the focused session's controller
// active, so background tabs skip resize propagation.
func (a *App) updateActiveControllers() {
	active := a.ws.ActiveSessionID()
	a.ctrlMu.Lock()
	for id, c := range a.controllers {
		c.SetActive(id == active)
	}
	a.ctrlMu.Unlock()
}

// ==================== Session Directory ====================

// ListSessions returns all live sessions in insertion order.
func (a *App) ListSessions() []workspace.Session {
	return a.ws.Sessions()
}

// GetActiveSessionID returns the focused session id, or "".
func (a *App) GetActiveSessionID() string {
	return a.ws.ActiveSessionID()
}

// SelectSession focuses a session and brings its group into view.
func (a *App) SelectSession(sessionID string) error {
	if err := a.ws.SetActiveSession(sessionID); err != nil {
		return err
	}
	a.updateActiveControllers()
	if s := a.surface(sessionID); s != nil {
		s.Focus()
	}
	return nil
}

// RenameSession applies a user rename to a live session.
func (a *App) RenameSession(sessionID, name string) {
	a.ws.UpdateSession(sessionID, workspace.SessionUpdate{Name: &name})
}

// MoveSessionToGroup reassigns a session's group without changing focus.
func (a *App) MoveSessionToGroup(sessionID, groupID string) error {
	return a.ws.MoveToGroup(sessionID, groupID)
}

// ==================== Groups ====================

// ListGroups returns all groups in display order.
func (a *App) ListGroups() []workspace.Group {
	return a.ws.Groups()
}

// GetActiveGroupID returns the active group cursor.
func (a *App) GetActiveGroupID() string {
	return a.ws.ActiveGroupID()
}

// CreateGroup creates a group and returns its id.
func (a *App) CreateGroup(name string) string {
	return a.ws.CreateGroup(name)
}

// DeleteGroup deletes a group, re-parenting its sessions to the default
// group. Deleting the default group is refused silently.
func (a *App) DeleteGroup(groupID string) {
	a.ws.DeleteGroup(groupID)
}

// RenameGroup updates a group's name.
func (a *App) RenameGroup(groupID, name string) {
	a.ws.RenameGroup(groupID, name)
}

// SetGroupCollapsed toggles a group's collapsed state.
func (a *App) SetGroupCollapsed(groupID string, collapsed bool) {
	a.ws.SetCollapsed(groupID, collapsed)
}

// ReorderGroups recomputes group order from the supplied id sequence.
func (a *App) ReorderGroups(orderedIDs []string) {
	a.ws.Reorder(orderedIDs)
}

// SelectGroup moves the group cursor; focus jumps to the group's first
// session when the current focus is elsewhere.
func (a *App) SelectGroup(groupID string) error {
	if err := a.ws.SetActiveGroup(groupID); err != nil {
		return err
	}
	a.updateActiveControllers()
	return nil
}

// ==================== History ====================

// GetSessionHistory returns the history ledger, most recent first.
func (a *App) GetSessionHistory() []workspace.HistoryEntry {
	return a.ws.History()
}

// ==================== Terminal I/O ====================

// WriteTerminal delivers a frontend keystroke to the session's controller,
// which forwards it to the PTY and resumes live scrolling.
func (a *App) WriteTerminal(sessionID, data string) error {
	s := a.surface(sessionID)
	if s == nil {
		return fmt.Errorf("terminal %s not found", sessionID)
	}
	s.dispatchData(data)
	return nil
}

// NotifyScroll reports the emulator viewport's distance from the bottom,
// driving the scroll-retention state machine.
func (a *App) NotifyScroll(sessionID string, rowsFromBottom int) {
	if s := a.surface(sessionID); s != nil {
		s.dispatchScroll(rowsFromBottom)
	}
}

// NotifyResize records new emulator dimensions and schedules a debounced
// PTY resize.
func (a *App) NotifyResize(sessionID string, rows, cols int) {
	s := a.surface(sessionID)
	if s == nil {
		return
	}
	s.setSize(rows, cols)
	if c := a.controller(sessionID); c != nil {
		c.ScheduleResize()
	}
}

// ReadScrollback returns the buffered output for a session so a remounting
// frontend view can rebuild its rendered state before live events resume.
func (a *App) ReadScrollback(sessionID string) string {
	return a.ws.Buffers().Read(sessionID)
}

// ==================== Desktop Settings ====================

// GetDesktopTheme returns the current theme preference.
func (a *App) GetDesktopTheme() string {
	cfg, err := a.settings.Load()
	if err != nil {
		return "dark"
	}
	return cfg.Theme
}

// SetDesktopTheme sets the theme preference ("dark", "light", "auto").
func (a *App) SetDesktopTheme(theme string) error {
	return a.settings.SetTheme(theme)
}

// GetFontSize returns the terminal font size (8-32, default 14).
func (a *App) GetFontSize() int {
	cfg, err := a.settings.Load()
	if err != nil {
		return 14
	}
	return cfg.Terminal.FontSize
}

// SetFontSize sets the terminal font size (clamped to 8-32).
func (a *App) SetFontSize(size int) error {
	return a.settings.SetFontSize(size)
}

// GetScrollSpeed returns the scroll speed percentage (50-250, default 100).
func (a *App) GetScrollSpeed() int {
	cfg, err := a.settings.Load()
	if err != nil {
		return 100
	}
	return cfg.Terminal.ScrollSpeed
}

// SetScrollSpeed sets the scroll speed percentage (clamped to 50-250).
func (a *App) SetScrollSpeed(speed int) error {
	return a.settings.SetScrollSpeed(speed)
}

// GetSoftNewlineMode returns the soft newline key preference.
func (a *App) GetSoftNewlineMode() string {
	cfg, err := a.settings.Load()
	if err != nil {
		return "both"
	}
	return cfg.Terminal.SoftNewline
}

// SetSoftNewlineMode sets the soft newline key preference.
func (a *App) SetSoftNewlineMode(mode string) error {
	return a.settings.SetSoftNewline(mode)
}

// GetTerminalSettings returns all terminal settings for the frontend.
func (a *App) GetTerminalSettings() map[string]interface{} {
	cfg, err := a.settings.Load()
	if err != nil {
		return map[string]interface{}{
			"softNewline": "both",
			"fontSize":    14,
			"scrollSpeed": 100,
			"theme":       "dark",
		}
	}
	return a.terminalSettingsMap(cfg)
}

func (a *App) terminalSettingsMap(cfg *config.DesktopConfig) map[string]interface{} {
	return map[string]interface{}{
		"softNewline": cfg.Terminal.SoftNewline,
		"fontSize":    cfg.Terminal.FontSize,
		"scrollSpeed": cfg.Terminal.ScrollSpeed,
		"theme":       cfg.Theme,
	}
}

// BrowseLocalDirectory opens a native directory picker dialog. Returns the
// selected path, or empty string if cancelled.
func (a *App) BrowseLocalDirectory(defaultDir string) (string, error) {
	return wailsRuntime.OpenDirectoryDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:                "Select Project Directory",
		DefaultDirectory:     defaultDir,
		CanCreateDirectories: false,
		ShowHiddenFiles:      false,
	})
}
