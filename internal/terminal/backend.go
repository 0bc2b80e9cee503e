package terminal

// Events carries the per-session callbacks a subscriber receives. The
// backend guarantees output events for a session are delivered in order,
// and that closed/error arrive after all output for that session.
type Events struct {
	// Output delivers a chunk of raw terminal output, escape sequences
	// included.
	Output func(data []byte)

	// Closed signals normal lifecycle end. exitedNormally is passed
	// through from the process outcome verbatim.
	Closed func(exitedNormally bool)

	// Error surfaces a backend-reported session error. It does not, by
	// itself, end the session.
	Error func(msg string)
}

// Backend is the collaborator that actually owns PTY processes. The core
// consumes exactly this surface: an event stream per session id, a write
// call, and a resize call.
type Backend interface {
	Subscribe(sessionID string, ev Events) (unsubscribe func())
	WriteInput(sessionID string, data []byte) error
	Resize(sessionID string, rows, cols int) error
}
