package main

import (
	"context"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// eventSurface bridges one terminal controller to the frontend emulator
// over Wails runtime events. Output and viewport commands flow out as
// per-session events; keystrokes, scroll positions, and size changes flow
// back in through App bindings that call the dispatch methods.
type eventSurface struct {
	sessionID string

	mu       sync.Mutex
	ctx      context.Context
	rows     int
	cols     int
	dataCB   func(string)
	scrollCB func(int)
}

func newEventSurface(ctx context.Context, sessionID string) *eventSurface {
	return &eventSurface{
		sessionID: sessionID,
		ctx:       ctx,
	}
}

func (s *eventSurface) emit(event string, args ...interface{}) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	runtime.EventsEmit(ctx, event+":"+s.sessionID, args...)
}

// Write forwards text verbatim to the frontend emulator.
func (s *eventSurface) Write(text string) {
	s.emit("terminal:data", text)
}

// ScrollToBottom asks the emulator to snap to the live edge.
func (s *eventSurface) ScrollToBottom() {
	s.emit("terminal:scrollToBottom")
}

// Reset clears the emulator's rendered state.
func (s *eventSurface) Reset() {
	s.emit("terminal:reset")
}

// Focus gives the emulator keyboard focus.
func (s *eventSurface) Focus() {
	s.emit("terminal:focus")
}

func (s *eventSurface) OnData(cb func(string)) func() {
	s.mu.Lock()
	s.dataCB = cb
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.dataCB = nil
		s.mu.Unlock()
	}
}

func (s *eventSurface) OnScroll(cb func(int)) func() {
	s.mu.Lock()
	s.scrollCB = cb
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.scrollCB = nil
		s.mu.Unlock()
	}
}

func (s *eventSurface) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

func (s *eventSurface) Cols() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols
}

// dispatchData delivers a frontend keystroke to the controller.
func (s *eventSurface) dispatchData(data string) {
	s.mu.Lock()
	cb := s.dataCB
	s.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// dispatchScroll delivers the emulator's distance from the bottom.
func (s *eventSurface) dispatchScroll(rowsFromBottom int) {
	s.mu.Lock()
	cb := s.scrollCB
	s.mu.Unlock()
	if cb != nil {
		cb(rowsFromBottom)
	}
}

// setSize records the emulator dimensions reported by the frontend.
func (s *eventSurface) setSize(rows, cols int) {
	s.mu.Lock()
	s.rows, s.cols = rows, cols
	s.mu.Unlock()
}
