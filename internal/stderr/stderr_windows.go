//go:build windows

// Package stderr is a no-op on Windows; the audio stack there does not
// write to fd 2 behind Go's back.
package stderr

import "os"

type Capture struct {
	Lines chan string
}

func Start() (*Capture, error) {
	return &Capture{Lines: make(chan string)}, nil
}

func (c *Capture) WriteOriginal(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

func (c *Capture) Stop() {
	close(c.Lines)
}
