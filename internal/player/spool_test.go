package player

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolReadAll(t *testing.T) {
	pr, pw := io.Pipe()
	s, err := newSpool(pr)
	require.NoError(t, err)
	defer s.Close()

	go func() {
		pw.Write([]byte("hello "))
		pw.Write([]byte("world"))
		pw.Close()
	}()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestSpoolSeekWithinDownloaded(t *testing.T) {
	pr, pw := io.Pipe()
	s, err := newSpool(pr)
	require.NoError(t, err)
	defer s.Close()

	go func() {
		pw.Write([]byte("0123456789"))
		pw.Close()
	}()

	// Drain once so the prefix is definitely spooled.
	_, err = io.ReadAll(s)
	require.NoError(t, err)

	pos, err := s.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	buf := make([]byte, 3)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf[:n]))
}

func TestSpoolReadBlocksUntilData(t *testing.T) {
	pr, pw := io.Pipe()
	s, err := newSpool(pr)
	require.NoError(t, err)
	defer s.Close()

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 4)
		n, _ := s.Read(buf)
		got <- string(buf[:n])
	}()

	// The reader must wait rather than return 0 bytes.
	select {
	case v := <-got:
		t.Fatalf("read returned early: %q", v)
	case <-time.After(50 * time.Millisecond):
	}

	pw.Write([]byte("data"))
	pw.Close()

	select {
	case v := <-got:
		assert.Equal(t, "data", v)
	case <-time.After(time.Second):
		t.Fatal("read never completed")
	}
}

func TestSpoolSeekEnd(t *testing.T) {
	pr, pw := io.Pipe()
	s, err := newSpool(pr)
	require.NoError(t, err)
	defer s.Close()

	go func() {
		pw.Write([]byte("0123456789"))
		pw.Close()
	}()

	pos, err := s.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), pos)

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "89", string(data))
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, 0.0, levelToVolume(1.0))
	assert.Equal(t, -1.0, levelToVolume(0.5))
	assert.Equal(t, -2.0, levelToVolume(0.25))
	assert.Equal(t, -10.0, levelToVolume(0))
	assert.Equal(t, -10.0, levelToVolume(-3))
	assert.Equal(t, 0.0, levelToVolume(2))
}
