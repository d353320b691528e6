//go:build !windows

// Package stderr captures output from C libraries (ALSA in particular)
// that write directly to file descriptor 2, bypassing Go's os.Stderr.
// Without it raw ALSA warnings corrupt the terminal UI layout.
package stderr

import (
	"bufio"
	"os"
	"strings"
	"syscall"
)

// Capture owns the redirected stderr. Lines written to fd 2 while the
// capture is active arrive on Lines.
type Capture struct {
	Lines chan string

	origFd    int
	pipeRead  *os.File
	pipeWrite *os.File
}

// Start redirects fd 2 into a pipe. Call before any C library
// initialization. The program can continue without capture on error;
// stderr noise just reaches the terminal unfiltered.
func Start() (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	origFd, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(origFd)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{
		Lines:     make(chan string, 100),
		origFd:    origFd,
		pipeRead:  r,
		pipeWrite: w,
	}

	go func() {
		scanner := bufio.NewScanner(c.pipeRead)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case c.Lines <- line:
			default:
				// Full channel means nobody is reading; drop rather
				// than block the writer.
			}
		}
	}()

	return c, nil
}

// WriteOriginal writes to the real stderr, bypassing capture. For fatal
// errors that must stay visible while the UI owns the screen.
func (c *Capture) WriteOriginal(msg string) {
	if c.origFd > 0 {
		_, _ = syscall.Write(c.origFd, []byte(msg))
	}
}

// Stop restores the original stderr and closes Lines.
func (c *Capture) Stop() {
	_ = syscall.Dup2(c.origFd, int(os.Stderr.Fd()))
	_ = syscall.Close(c.origFd)
	c.pipeWrite.Close()
	c.pipeRead.Close()
	close(c.Lines)
}
