package terminal

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revden/revden/internal/workspace"
)

// fakeSurface records what the controller drives and lets tests fire
// user-input and scroll callbacks.
type fakeSurface struct {
	mu        sync.Mutex
	writes    []string
	scrolls   int
	resets    int
	rows      int
	cols      int
	dataCB    func(string)
	scrollCB  func(int)
	dataSubs  int
	scrlSubs  int
	unsubData int
	unsubScrl int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{rows: 24, cols: 80}
}

func (f *fakeSurface) Write(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, text)
}

func (f *fakeSurface) ScrollToBottom() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls++
}

func (f *fakeSurface) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeSurface) Focus() {}

func (f *fakeSurface) OnData(cb func(string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataCB = cb
	f.dataSubs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.dataCB = nil
		f.unsubData++
	}
}

func (f *fakeSurface) OnScroll(cb func(int)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollCB = cb
	f.scrlSubs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.scrollCB = nil
		f.unsubScrl++
	}
}

func (f *fakeSurface) Rows() int { f.mu.Lock(); defer f.mu.Unlock(); return f.rows }
func (f *fakeSurface) Cols() int { f.mu.Lock(); defer f.mu.Unlock(); return f.cols }

func (f *fakeSurface) typeText(s string) {
	f.mu.Lock()
	cb := f.dataCB
	f.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (f *fakeSurface) scrollTo(rowsFromBottom int) {
	f.mu.Lock()
	cb := f.scrollCB
	f.mu.Unlock()
	if cb != nil {
		cb(rowsFromBottom)
	}
}

func (f *fakeSurface) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "")
}

func (f *fakeSurface) scrollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrolls
}

// fakeBackend captures subscriptions and writes and lets tests emit the
// three event kinds.
type fakeBackend struct {
	mu       sync.Mutex
	events   Events
	writes   [][]byte
	resizes  [][2]int
	writeErr error
	sizeErr  error
	unsubbed bool
}

func (f *fakeBackend) Subscribe(sessionID string, ev Events) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = ev
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = Events{}
		f.unsubbed = true
	}
}

func (f *fakeBackend) WriteInput(sessionID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeBackend) Resize(sessionID string, rows, cols int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sizeErr != nil {
		return f.sizeErr
	}
	f.resizes = append(f.resizes, [2]int{rows, cols})
	return nil
}

func (f *fakeBackend) emitOutput(data string) {
	f.mu.Lock()
	ev := f.events
	f.mu.Unlock()
	if ev.Output != nil {
		ev.Output([]byte(data))
	}
}

func (f *fakeBackend) emitClosed(clean bool) {
	f.mu.Lock()
	ev := f.events
	f.mu.Unlock()
	if ev.Closed != nil {
		ev.Closed(clean)
	}
}

func (f *fakeBackend) emitError(msg string) {
	f.mu.Lock()
	ev := f.events
	f.mu.Unlock()
	if ev.Error != nil {
		ev.Error(msg)
	}
}

func (f *fakeBackend) resizeCalls() [][2]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][2]int, len(f.resizes))
	copy(out, f.resizes)
	return out
}

func (f *fakeBackend) writtenInput() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []byte
	for _, w := range f.writes {
		all = append(all, w...)
	}
	return all
}

type testRig struct {
	ws      *workspace.Workspace
	surface *fakeSurface
	backend *fakeBackend
	ctrl    *Controller
	closed  []bool
	errs    []string
}

func newTestRig(t *testing.T, opts Options) *testRig {
	t.Helper()
	rig := &testRig{
		ws:      workspace.New(),
		surface: newFakeSurface(),
		backend: &fakeBackend{},
	}
	require.NoError(t, rig.ws.AddSession(workspace.Session{ID: "s1", IsRunning: true}, ""))
	hooks := Hooks{
		OnClosed: func(clean bool) { rig.closed = append(rig.closed, clean) },
		OnError:  func(msg string) { rig.errs = append(rig.errs, msg) },
	}
	rig.ctrl = NewController("s1", rig.backend, rig.surface, rig.ws, hooks, opts)
	t.Cleanup(rig.ctrl.Detach)
	return rig
}

func TestController_AttachReplaysBuffer(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ws.Buffers().Append("s1", "previous output")

	rig.ctrl.Attach()

	assert.Equal(t, "previous output", rig.surface.written())
	assert.Equal(t, 1, rig.surface.scrollCount(), "replay forces an initial scroll to bottom")
	assert.Equal(t, Live, rig.ctrl.Mode())
}

func TestController_AttachWithoutBufferSkipsReplay(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	assert.Empty(t, rig.surface.written())
	assert.Zero(t, rig.surface.scrollCount())
}

func TestController_OutputInLiveScrolls(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	rig.backend.emitOutput("hello \x1b[32mworld\x1b[0m")

	assert.Equal(t, "hello \x1b[32mworld\x1b[0m", rig.surface.written(),
		"escape sequences must pass through unmodified")
	assert.Equal(t, "hello \x1b[32mworld\x1b[0m", rig.ws.Buffers().Read("s1"))
	assert.Equal(t, 1, rig.surface.scrollCount())
}

func TestController_ScrollAwayEntersBrowsing(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	rig.surface.scrollTo(10)
	assert.Equal(t, Browsing, rig.ctrl.Mode())

	rig.backend.emitOutput("more output")
	assert.Contains(t, rig.surface.written(), "more output", "content is never withheld")
	assert.Equal(t, "more output", rig.ws.Buffers().Read("s1"))
	assert.Zero(t, rig.surface.scrollCount(), "no auto-scroll while browsing")
}

func TestController_ScrollWithinToleranceStaysLive(t *testing.T) {
	rig := newTestRig(t, Options{ScrollTolerance: 3})
	rig.ctrl.Attach()

	rig.surface.scrollTo(3)
	assert.Equal(t, Live, rig.ctrl.Mode(), "tolerance rows from bottom is still live")

	rig.surface.scrollTo(4)
	assert.Equal(t, Browsing, rig.ctrl.Mode())

	rig.surface.scrollTo(0)
	assert.Equal(t, Live, rig.ctrl.Mode(), "scrolling back to bottom resumes live")
}

func TestController_KeystrokeResumesLive(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()
	rig.surface.scrollTo(50)
	require.Equal(t, Browsing, rig.ctrl.Mode())

	rig.surface.typeText("ls\r")

	assert.Equal(t, Live, rig.ctrl.Mode(), "typing resumes live within the same tick")
	assert.Equal(t, []byte("ls\r"), rig.backend.writtenInput())
	assert.Equal(t, 1, rig.surface.scrollCount())
}

func TestController_BrowsingDoesNotExpireEarly(t *testing.T) {
	rig := newTestRig(t, Options{BrowsingIdle: time.Hour})
	rig.ctrl.Attach()
	rig.surface.scrollTo(20)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, Browsing, rig.ctrl.Mode(), "no transition from elapsed time below the idle window")
}

func TestController_BrowsingExpiresBackToLive(t *testing.T) {
	rig := newTestRig(t, Options{BrowsingIdle: 20 * time.Millisecond})
	rig.ctrl.Attach()
	rig.surface.scrollTo(20)
	require.Equal(t, Browsing, rig.ctrl.Mode())

	require.Eventually(t, func() bool {
		return rig.ctrl.Mode() == Live
	}, time.Second, 5*time.Millisecond, "browsing must auto-expire back to live")
}

func TestController_ScrollAwayRestartsIdleWindow(t *testing.T) {
	rig := newTestRig(t, Options{BrowsingIdle: 300 * time.Millisecond})
	rig.ctrl.Attach()

	rig.surface.scrollTo(20)
	time.Sleep(200 * time.Millisecond)
	rig.surface.scrollTo(30) // restarts the window
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, Browsing, rig.ctrl.Mode(), "each scroll-away resets the expiry")
}

func TestController_ClosedEvent(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	rig.backend.emitClosed(true)

	assert.Contains(t, rig.surface.written(), "[session closed]")
	assert.Contains(t, rig.ws.Buffers().Read("s1"), "[session closed]",
		"the notice must survive remounts like any other output")
	s, ok := rig.ws.GetSession("s1")
	require.True(t, ok)
	assert.False(t, s.IsRunning)
	require.Len(t, rig.closed, 1)
	assert.True(t, rig.closed[0])
}

func TestController_ErrorEventDoesNotCloseSession(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	rig.backend.emitError("spawn failed")

	assert.Contains(t, rig.surface.written(), "spawn failed")
	require.Len(t, rig.errs, 1)
	assert.Equal(t, "spawn failed", rig.errs[0])
	s, _ := rig.ws.GetSession("s1")
	assert.True(t, s.IsRunning, "an error event does not end the session")
	assert.Empty(t, rig.closed)
}

func TestController_DetachKeepsBufferAndUnsubscribes(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()
	rig.backend.emitOutput("kept output")

	rig.ctrl.Detach()

	assert.True(t, rig.backend.unsubbed)
	assert.Equal(t, "kept output", rig.ws.Buffers().Read("s1"),
		"detach must not clear the output buffer")

	before := rig.surface.written()
	rig.backend.emitOutput("after detach")
	assert.Equal(t, before, rig.surface.written(), "events after detach are discarded")
}

func TestController_ReattachReplaysAccumulatedOutput(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()
	rig.backend.emitOutput("first mount output")
	rig.ctrl.Detach()

	surface2 := newFakeSurface()
	ctrl2 := NewController("s1", rig.backend, surface2, rig.ws, Hooks{}, Options{})
	defer ctrl2.Detach()
	ctrl2.Attach()

	assert.Equal(t, "first mount output", surface2.written(),
		"a remounted view reconstructs prior state from the buffer")
}

func TestController_ResizeDebounce(t *testing.T) {
	rig := newTestRig(t, Options{ResizeDebounce: 15 * time.Millisecond})
	rig.ctrl.Attach()

	rig.ctrl.ScheduleResize()
	rig.ctrl.ScheduleResize()
	rig.ctrl.ScheduleResize()

	require.Eventually(t, func() bool {
		return len(rig.backend.resizeCalls()) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	calls := rig.backend.resizeCalls()
	require.Len(t, calls, 1, "bursts collapse into a single resize")
	assert.Equal(t, [2]int{24, 80}, calls[0])
}

func TestController_ResizeSkippedWhenInactive(t *testing.T) {
	rig := newTestRig(t, Options{ResizeDebounce: 10 * time.Millisecond})
	rig.ctrl.Attach()
	rig.ctrl.SetActive(false)

	rig.ctrl.ScheduleResize()
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rig.backend.resizeCalls())
}

func TestController_ResizeSkippedForNonPositiveDims(t *testing.T) {
	rig := newTestRig(t, Options{ResizeDebounce: 10 * time.Millisecond})
	rig.surface.mu.Lock()
	rig.surface.rows = 0
	rig.surface.mu.Unlock()
	rig.ctrl.Attach()

	rig.ctrl.ScheduleResize()
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rig.backend.resizeCalls())
}

func TestController_ResizeFailureRetriedNextCycle(t *testing.T) {
	rig := newTestRig(t, Options{ResizeDebounce: 10 * time.Millisecond})
	rig.ctrl.Attach()

	rig.backend.mu.Lock()
	rig.backend.sizeErr = fmt.Errorf("transport down")
	rig.backend.mu.Unlock()

	rig.ctrl.ScheduleResize()
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rig.backend.resizeCalls(), "failed resize is not recorded")

	rig.backend.mu.Lock()
	rig.backend.sizeErr = nil
	rig.backend.mu.Unlock()

	rig.ctrl.ScheduleResize()
	require.Eventually(t, func() bool {
		return len(rig.backend.resizeCalls()) == 1
	}, time.Second, 5*time.Millisecond, "next debounce cycle retries silently")
}

func TestController_WriteImagesSingle(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	img := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, []byte("pixels")...)
	require.NoError(t, rig.ctrl.WriteImages([][]byte{img}))

	got := string(rig.backend.writtenInput())
	assert.True(t, strings.HasPrefix(got, "\x1b]1337;File=inline=1;size="))
	assert.NotContains(t, rig.surface.written(), "images attached",
		"no summary for a single image")
}

func TestController_WriteImagesMultipleAppendsSummary(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	img := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, []byte("pixels")...)
	require.NoError(t, rig.ctrl.WriteImages([][]byte{img, img}))

	assert.Equal(t, 2, strings.Count(string(rig.backend.writtenInput()), "\x1b]1337;"),
		"each file is wrapped independently")
	assert.Contains(t, rig.surface.written(), "[2 images attached]")
	assert.Contains(t, rig.ws.Buffers().Read("s1"), "[2 images attached]")
}

func TestController_WriteImagesRejectsInvalid(t *testing.T) {
	rig := newTestRig(t, Options{})
	rig.ctrl.Attach()

	err := rig.ctrl.WriteImages([][]byte{[]byte("not a png")})
	assert.Error(t, err)
	assert.Empty(t, rig.backend.writtenInput())
}
