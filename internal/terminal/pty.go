package terminal

import (
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// PTY wraps a pseudo-terminal running a single command.
type PTY struct {
	cmd  *exec.Cmd
	file *os.File
	mu   sync.Mutex
}

// SpawnPTY starts command under a new PTY with the given initial size.
// tmux-style programs query terminal size on startup, so a 0x0 PTY would
// render nothing; callers should pass real dimensions when they have them.
func SpawnPTY(cols, rows int, workDir, name string, args ...string) (*PTY, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)

	var ptmx *os.File
	var err error
	if cols > 0 && rows > 0 {
		ptmx, err = pty.StartWithSize(cmd, &pty.Winsize{
			Cols: uint16(cols),
			Rows: uint16(rows),
		})
	} else {
		ptmx, err = pty.Start(cmd)
	}
	if err != nil {
		return nil, err
	}

	return &PTY{
		cmd:  cmd,
		file: ptmx,
	}, nil
}

// SpawnShellPTY starts the user's login shell under a new PTY.
func SpawnShellPTY(cols, rows int, workDir string) (*PTY, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/zsh"
	}
	return SpawnPTY(cols, rows, workDir, shell, "-l")
}

// Read reads from the PTY.
func (p *PTY) Read(buf []byte) (int, error) {
	return p.file.Read(buf)
}

// Write writes to the PTY.
func (p *PTY) Write(data []byte) (int, error) {
	return p.file.Write(data)
}

// Resize changes the PTY window size.
func (p *PTY) Resize(cols, rows uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pty.Setsize(p.file, &pty.Winsize{
		Cols: cols,
		Rows: rows,
	})
}

// Wait blocks until the command exits and reports whether it exited
// cleanly.
func (p *PTY) Wait() bool {
	return p.cmd.Wait() == nil
}

// Close terminates the PTY and the underlying process.
func (p *PTY) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	return p.file.Close()
}
