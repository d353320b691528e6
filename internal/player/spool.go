package player

import (
	"errors"
	"io"
	"os"
	"sync"
)

// spool copies an HTTP stream body into a temp file as it arrives, exposing
// the spooled bytes as an io.ReadSeeker. Reads past the downloaded prefix
// block until the downloader catches up, so the decoder can seek within
// everything received so far without re-requesting the URL.
type spool struct {
	mu   sync.Mutex
	cond *sync.Cond

	file    *os.File
	written int64
	offset  int64
	done    bool
	err     error
}

func newSpool(src io.ReadCloser) (*spool, error) {
	f, err := os.CreateTemp("", "hifi-stream-*")
	if err != nil {
		src.Close()
		return nil, err
	}
	// Unlink immediately; the fd keeps the data alive.
	os.Remove(f.Name())

	s := &spool{file: f}
	s.cond = sync.NewCond(&s.mu)

	go s.download(src)
	return s, nil
}

func (s *spool) download(src io.ReadCloser) {
	defer src.Close()

	buf := make([]byte, 64*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			s.mu.Lock()
			if _, werr := s.file.WriteAt(buf[:n], s.written); werr != nil {
				s.err = werr
				s.done = true
				s.cond.Broadcast()
				s.mu.Unlock()
				return
			}
			s.written += int64(n)
			s.cond.Broadcast()
			s.mu.Unlock()
		}
		if err != nil {
			s.mu.Lock()
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			s.done = true
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}
	}
}

// Read blocks until data is available at the current offset or the
// download ends.
func (s *spool) Read(p []byte) (int, error) {
	s.mu.Lock()
	for s.offset >= s.written && !s.done {
		s.cond.Wait()
	}
	if s.offset >= s.written {
		err := s.err
		s.mu.Unlock()
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	avail := s.written - s.offset
	if int64(len(p)) > avail {
		p = p[:avail]
	}
	n, err := s.file.ReadAt(p, s.offset)
	s.offset += int64(n)
	s.mu.Unlock()
	return n, err
}

// Seek repositions within the spooled data. Seeking forward past the
// downloaded prefix parks the offset there; the next Read blocks until the
// downloader reaches it.
func (s *spool) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.offset + offset
	case io.SeekEnd:
		// Wait for the download to finish so the size is known.
		for !s.done {
			s.cond.Wait()
		}
		target = s.written + offset
	default:
		return 0, errors.New("spool: invalid whence")
	}
	if target < 0 {
		return 0, errors.New("spool: negative position")
	}
	s.offset = target
	return target, nil
}

// Buffered returns how many bytes have been spooled so far.
func (s *spool) Buffered() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
