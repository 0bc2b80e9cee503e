package workspace

import "sync"

// MaxBufferSize caps the retained output per session. Once exceeded, the
// oldest content is dropped so the buffer always holds the most recent
// window of terminal output.
const MaxBufferSize = 500_000

// OutputBuffers is an in-memory, per-session output cache. It outlives the
// terminal controller that feeds it: a view can unmount, remount, and replay
// the buffer to rebuild its rendered state. Entries are only removed when a
// session is permanently disposed of.
type OutputBuffers struct {
	mu      sync.Mutex
	maxSize int
	data    map[string]string
}

// NewOutputBuffers creates an output buffer store. If maxSize <= 0,
// MaxBufferSize is used.
func NewOutputBuffers(maxSize int) *OutputBuffers {
	if maxSize <= 0 {
		maxSize = MaxBufferSize
	}
	return &OutputBuffers{
		maxSize: maxSize,
		data:    make(map[string]string),
	}
}

// Append concatenates chunk onto the session's buffer, keeping only the
// trailing maxSize characters when the result overflows.
func (b *OutputBuffers) Append(sessionID, chunk string) {
	if chunk == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.data[sessionID] + chunk
	if len(s) > b.maxSize {
		s = s[len(s)-b.maxSize:]
	}
	b.data[sessionID] = s
}

// Read returns the session's buffered output, or "" if none exists.
func (b *OutputBuffers) Read(sessionID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[sessionID]
}

// Clear removes the session's buffer entirely. Called only on permanent
// disposal, never on a transient view unmount.
func (b *OutputBuffers) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, sessionID)
}

// Len returns the current buffer length for a session.
func (b *OutputBuffers) Len(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data[sessionID])
}
