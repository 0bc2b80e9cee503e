package terminal

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// SpawnOptions describes the process behind a new session.
type SpawnOptions struct {
	Command string
	Args    []string
	WorkDir string
	Cols    int
	Rows    int
}

// PTYBackend implements Backend on top of local pseudo-terminals, one per
// session id. Each session runs a read loop that fans raw output out to its
// subscribers in delivery order, then reports the close.
type PTYBackend struct {
	mu       sync.Mutex
	sessions map[string]*ptySession
}

type ptySession struct {
	id string

	mu      sync.Mutex
	pty     *PTY
	subs    map[int]Events
	nextSub int
	closing bool // Close was requested; the exit is a clean user close
	done    bool // Closed has been emitted
}

// NewPTYBackend creates an empty PTY backend.
func NewPTYBackend() *PTYBackend {
	return &PTYBackend{
		sessions: make(map[string]*ptySession),
	}
}

// Spawn starts a process under a new PTY for sessionID and begins streaming
// its output to subscribers. Subscribing before Spawn guarantees no output
// is missed. A failed spawn emits an Error event and removes the session,
// so no placeholder entry lingers in the backend.
func (b *PTYBackend) Spawn(sessionID string, opts SpawnOptions) error {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if !ok {
		s = newPTYSession(sessionID)
		b.sessions[sessionID] = s
	}
	b.mu.Unlock()

	s.mu.Lock()
	if s.pty != nil {
		s.mu.Unlock()
		return nil // already started
	}
	s.mu.Unlock()

	var p *PTY
	var err error
	if opts.Command == "" {
		p, err = SpawnShellPTY(opts.Cols, opts.Rows, opts.WorkDir)
	} else {
		p, err = SpawnPTY(opts.Cols, opts.Rows, opts.WorkDir, opts.Command, opts.Args...)
	}
	if err != nil {
		b.removeSession(sessionID)
		s.emitError(fmt.Sprintf("failed to start session: %v", err))
		return err
	}

	s.mu.Lock()
	if s.pty != nil {
		// Lost a spawn race; keep the first process.
		s.mu.Unlock()
		p.Close()
		return nil
	}
	s.pty = p
	s.mu.Unlock()

	go b.readLoop(s, p)
	return nil
}

// Subscribe registers event callbacks for a session. The session need not
// exist yet; callbacks fire once it spawns. The returned function removes
// the subscription.
func (b *PTYBackend) Subscribe(sessionID string, ev Events) (unsubscribe func()) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if !ok {
		s = newPTYSession(sessionID)
		b.sessions[sessionID] = s
	}
	b.mu.Unlock()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ev
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// WriteInput sends raw bytes to the session's PTY.
func (b *PTYBackend) WriteInput(sessionID string, data []byte) error {
	s := b.get(sessionID)
	if s == nil {
		return fmt.Errorf("session %s not running", sessionID)
	}
	p := s.ptyHandle()
	if p == nil {
		return fmt.Errorf("session %s not running", sessionID)
	}
	_, err := p.Write(data)
	return err
}

// Resize changes the session's PTY dimensions.
func (b *PTYBackend) Resize(sessionID string, rows, cols int) error {
	s := b.get(sessionID)
	if s == nil {
		return fmt.Errorf("session %s not running", sessionID)
	}
	p := s.ptyHandle()
	if p == nil {
		return fmt.Errorf("session %s not running", sessionID)
	}
	return p.Resize(uint16(cols), uint16(rows))
}

// Close terminates a session's process and removes it from the backend.
// Subscribers receive a Closed event with exitedNormally=true, since a
// requested close is a clean end.
func (b *PTYBackend) Close(sessionID string) error {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if ok {
		delete(b.sessions, sessionID)
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}

	s.mu.Lock()
	s.closing = true
	p := s.pty
	s.mu.Unlock()

	if p != nil {
		return p.Close()
	}
	s.emitClosed(true)
	return nil
}

// CloseAll terminates every managed session.
func (b *PTYBackend) CloseAll() error {
	b.mu.Lock()
	ids := make([]string, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := b.Close(id); err != nil {
			errs = append(errs, fmt.Errorf("failed to close session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of tracked sessions.
func (b *PTYBackend) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *PTYBackend) get(sessionID string) *ptySession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[sessionID]
}

func (b *PTYBackend) removeSession(sessionID string) {
	b.mu.Lock()
	delete(b.sessions, sessionID)
	b.mu.Unlock()
}

func newPTYSession(id string) *ptySession {
	return &ptySession{
		id:   id,
		subs: make(map[int]Events),
	}
}

// readLoop streams PTY output to subscribers until the process ends, then
// releases the PTY, drops the session from the backend, and emits exactly
// one Closed event. Chunks are delivered in read order; the loop is the
// only reader, so ordering holds without extra buffering.
func (b *PTYBackend) readLoop(s *ptySession, p *PTY) {
	buf := make([]byte, 32*1024)

	for {
		n, err := p.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.emitOutput(chunk)
		}
		if err != nil {
			exited := p.Wait()
			p.Close() // the process is gone; this frees the master fd
			b.removeSession(s.id)
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				exited = true
			}
			s.emitClosed(exited)
			return
		}
	}
}

func (s *ptySession) ptyHandle() *PTY {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pty
}

func (s *ptySession) snapshotSubs() []Events {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Events, 0, len(s.subs))
	for _, ev := range s.subs {
		out = append(out, ev)
	}
	return out
}

func (s *ptySession) emitOutput(data []byte) {
	for _, ev := range s.snapshotSubs() {
		if ev.Output != nil {
			ev.Output(data)
		}
	}
}

func (s *ptySession) emitClosed(exitedNormally bool) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.mu.Unlock()

	log.Printf("[pty] session %s closed (clean=%v)", s.id, exitedNormally)
	for _, ev := range s.snapshotSubs() {
		if ev.Closed != nil {
			ev.Closed(exitedNormally)
		}
	}
}

func (s *ptySession) emitError(msg string) {
	log.Printf("[pty] session %s error: %s", s.id, msg)
	for _, ev := range s.snapshotSubs() {
		if ev.Error != nil {
			ev.Error(msg)
		}
	}
}
