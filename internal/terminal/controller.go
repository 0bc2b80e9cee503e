package terminal

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/revden/revden/internal/workspace"
)

// ScrollMode is the state of the scroll-retention protocol.
type ScrollMode int

const (
	// Live pins the viewport to the bottom on every new chunk.
	Live ScrollMode = iota
	// Browsing suspends auto-scroll while the user reads history.
	Browsing
)

// Defaults for the scroll-retention protocol and resize handling.
const (
	DefaultScrollTolerance = 3 // rows from bottom still treated as live
	DefaultBrowsingIdle    = 60 * time.Second
	DefaultResizeDebounce  = 150 * time.Millisecond
)

// Hooks let the owning component react to session lifecycle events. The
// controller marks the session not-running itself; finalizing the history
// entry stays with the owner.
type Hooks struct {
	OnClosed func(exitedNormally bool)
	OnError  func(msg string)
}

// Options tune controller timing. Zero values select the defaults.
type Options struct {
	ScrollTolerance int
	BrowsingIdle    time.Duration
	ResizeDebounce  time.Duration
}

// Controller binds one rendering surface to one backend session. It replays
// buffered output on attach, accumulates new output into the shared buffer
// store, and reconciles auto-scroll with user-initiated scrolling:
//
//   - new output normally pushes the view to the bottom (tail -f),
//   - a user reading scrolled-back history is never yanked down,
//   - typing, scrolling back to the bottom, or an idle timeout resumes
//     auto-scroll immediately.
//
// Content itself is never withheld; only the jump to bottom is conditional.
type Controller struct {
	sessionID string
	backend   Backend
	surface   Surface
	ws        *workspace.Workspace
	hooks     Hooks

	tolerance    int
	browsingIdle time.Duration

	mu        sync.Mutex
	attached  bool
	active    bool // visible/focused surface; gates resize
	mode      ScrollMode
	idleTimer *time.Timer

	debouncedResize func(func())
	unsubBackend    func()
	unsubData       func()
	unsubScroll     func()
}

// NewController creates a detached controller for sessionID.
func NewController(sessionID string, backend Backend, surface Surface, ws *workspace.Workspace, hooks Hooks, opts Options) *Controller {
	if opts.ScrollTolerance <= 0 {
		opts.ScrollTolerance = DefaultScrollTolerance
	}
	if opts.BrowsingIdle <= 0 {
		opts.BrowsingIdle = DefaultBrowsingIdle
	}
	if opts.ResizeDebounce <= 0 {
		opts.ResizeDebounce = DefaultResizeDebounce
	}
	return &Controller{
		sessionID:       sessionID,
		backend:         backend,
		surface:         surface,
		ws:              ws,
		hooks:           hooks,
		tolerance:       opts.ScrollTolerance,
		browsingIdle:    opts.BrowsingIdle,
		mode:            Live,
		debouncedResize: debounce.New(opts.ResizeDebounce),
	}
}

// Attach replays any buffered output into the surface, then subscribes to
// the backend's event stream and the surface's input/scroll callbacks. A
// fresh mount has no user scroll position, so it starts Live with a forced
// scroll to bottom when a replay happened.
func (c *Controller) Attach() {
	c.mu.Lock()
	if c.attached {
		c.mu.Unlock()
		return
	}
	c.attached = true
	c.active = true
	c.mode = Live
	c.mu.Unlock()

	if replay := c.ws.Buffers().Read(c.sessionID); replay != "" {
		c.surface.Write(replay)
		c.surface.ScrollToBottom()
	}

	c.unsubData = c.surface.OnData(c.handleUserInput)
	c.unsubScroll = c.surface.OnScroll(c.handleScroll)
	c.unsubBackend = c.backend.Subscribe(c.sessionID, Events{
		Output: c.handleOutput,
		Closed: c.handleClosed,
		Error:  c.handleError,
	})
}

// Detach unsubscribes from all events and disposes timers. The output
// buffer is deliberately left intact: surviving detach is the entire point
// of the buffer store.
func (c *Controller) Detach() {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	c.attached = false
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	unsubs := []func(){c.unsubBackend, c.unsubData, c.unsubScroll}
	c.unsubBackend, c.unsubData, c.unsubScroll = nil, nil, nil
	c.mu.Unlock()

	for _, u := range unsubs {
		if u != nil {
			u()
		}
	}
}

// SetActive marks whether this controller drives the visible surface.
// Inactive controllers skip resize propagation.
func (c *Controller) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
}

// Mode returns the current scroll-retention state.
func (c *Controller) Mode() ScrollMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// handleOutput forwards a chunk verbatim to the surface and the buffer
// store; only the jump to bottom depends on the scroll mode.
func (c *Controller) handleOutput(data []byte) {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	live := c.mode == Live
	c.mu.Unlock()

	text := string(data)
	c.surface.Write(text)
	c.ws.Buffers().Append(c.sessionID, text)
	if live {
		c.surface.ScrollToBottom()
	}
}

// handleScroll runs the Live/Browsing transitions. Scrolling more than the
// tolerance above the bottom suspends auto-scroll; landing back within
// tolerance resumes it. Each scroll-away restarts the idle expiry so a
// session left scrolled up is not stuck ignoring output forever.
func (c *Controller) handleScroll(rowsFromBottom int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached {
		return
	}

	if rowsFromBottom > c.tolerance {
		c.mode = Browsing
		if c.idleTimer != nil {
			c.idleTimer.Stop()
		}
		c.idleTimer = time.AfterFunc(c.browsingIdle, c.expireBrowsing)
		return
	}

	c.mode = Live
	c.stopIdleTimerLocked()
}

func (c *Controller) expireBrowsing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached || c.mode != Browsing {
		return
	}
	c.mode = Live
	c.idleTimer = nil
}

func (c *Controller) stopIdleTimerLocked() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
}

// handleUserInput forwards keystrokes to the backend. Typing is unambiguous
// evidence of renewed interest in live mode, so auto-scroll resumes first.
func (c *Controller) handleUserInput(data string) {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	c.mode = Live
	c.stopIdleTimerLocked()
	c.mu.Unlock()

	c.surface.ScrollToBottom()
	if err := c.backend.WriteInput(c.sessionID, []byte(data)); err != nil {
		log.Printf("[terminal] write to session %s failed: %v", c.sessionID, err)
	}
}

// handleClosed synthesizes a visible notice, marks the session stopped, and
// hands finalization to the owner.
func (c *Controller) handleClosed(exitedNormally bool) {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.writeNotice("\r\n\x1b[90m[session closed]\x1b[0m\r\n")

	running := false
	c.ws.UpdateSession(c.sessionID, workspace.SessionUpdate{IsRunning: &running})

	if c.hooks.OnClosed != nil {
		c.hooks.OnClosed(exitedNormally)
	}
}

// handleError renders the error inline and surfaces it upward. The session
// stays usable; it may still emit output or a later close.
func (c *Controller) handleError(msg string) {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.writeNotice(fmt.Sprintf("\r\n\x1b[31m[session error: %s]\x1b[0m\r\n", msg))

	if c.hooks.OnError != nil {
		c.hooks.OnError(msg)
	}
}

// writeNotice appends a synthesized line to both the surface and the
// buffer, so it survives remounts like any other output.
func (c *Controller) writeNotice(text string) {
	c.mu.Lock()
	live := c.mode == Live
	c.mu.Unlock()

	c.surface.Write(text)
	c.ws.Buffers().Append(c.sessionID, text)
	if live {
		c.surface.ScrollToBottom()
	}
}

// ScheduleResize propagates the surface's dimensions to the backend after
// the debounce window. Failures are logged and retried on the next cycle;
// inactive controllers and non-positive dimensions are skipped.
func (c *Controller) ScheduleResize() {
	c.debouncedResize(c.applyResize)
}

func (c *Controller) applyResize() {
	c.mu.Lock()
	ok := c.attached && c.active
	c.mu.Unlock()
	if !ok {
		return
	}

	rows, cols := c.surface.Rows(), c.surface.Cols()
	if rows <= 0 || cols <= 0 {
		return
	}
	if err := c.backend.Resize(c.sessionID, rows, cols); err != nil {
		log.Printf("[terminal] resize of session %s failed: %v", c.sessionID, err)
	}
}

// WriteImages writes each image payload to the backend as an independent
// inline-image escape. When more than one image is processed in a single
// drop, a summary count is appended to the output.
func (c *Controller) WriteImages(images [][]byte) error {
	written := 0
	for _, img := range images {
		if err := ValidateImageData(img); err != nil {
			log.Printf("[terminal] skipping image for session %s: %v", c.sessionID, err)
			continue
		}
		if err := c.backend.WriteInput(c.sessionID, []byte(WrapInlineImage(img))); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		written++
	}
	if written == 0 {
		return fmt.Errorf("no valid images to write")
	}
	if written > 1 {
		c.writeNotice(fmt.Sprintf("\r\n\x1b[90m[%d images attached]\x1b[0m\r\n", written))
	}
	return nil
}
