package stream

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeWriteThenReadEOF(t *testing.T) {
	p := New(16)
	w, r := p.Writer(), p.Reader()

	n, err := w.Write([]byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, w.Close())

	buf := make([]byte, 16)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "foo", string(buf[:n]))

	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPipeReaderCloseUnblocksWriter(t *testing.T) {
	p := New(4)
	w, r := p.Writer(), p.Reader()

	done := make(chan error, 1)
	go func() {
		// capacity 4, this write must block until the reader closes.
		_, err := w.Write([]byte("abcdefgh"))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosedPipe)
	case <-time.After(time.Second):
		t.Fatal("writer did not unblock after reader close")
	}
}

func TestPipeBlockingReadWaitsForData(t *testing.T) {
	p := New(16)
	w, r := p.Writer(), p.Reader()

	result := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, err := r.Read(buf)
		require.NoError(t, err)
		result <- string(buf[:n])
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := w.Write([]byte("late"))
	require.NoError(t, err)

	select {
	case got := <-result:
		assert.Equal(t, "late", got)
	case <-time.After(time.Second):
		t.Fatal("reader did not observe late write")
	}
}
