package terminal

// Surface is the rendering capability a controller drives. The concrete
// implementation lives on the other side of the frontend bridge (an
// xterm-style emulator); the core only writes text, steers the viewport,
// and listens for user input and scroll movement.
type Surface interface {
	// Write forwards text to the emulator verbatim. Escape sequences must
	// pass through unmodified.
	Write(text string)

	// ScrollToBottom snaps the viewport to the live edge.
	ScrollToBottom()

	// Reset clears the emulator's rendered state.
	Reset()

	// Focus gives the surface keyboard focus.
	Focus()

	// OnData registers a callback for user keystrokes. The returned
	// function unsubscribes.
	OnData(cb func(data string)) (unsubscribe func())

	// OnScroll registers a callback invoked with the viewport's distance
	// from the buffer's logical bottom, in rows. Zero means pinned to the
	// live edge.
	OnScroll(cb func(rowsFromBottom int)) (unsubscribe func())

	// Rows and Cols report the current emulator dimensions.
	Rows() int
	Cols() int
}
