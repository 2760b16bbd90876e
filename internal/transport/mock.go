package transport

import (
	"bytes"
	"sync"
	"time"
)

// MockSource is an in-memory byte source with configurable behaviour. It
// backs unit tests and the daemon's -dev mode device emulator.
type MockSource struct {
	mu       sync.Mutex
	readable bytes.Buffer
	written  bytes.Buffer

	// OnWrite, if set, is invoked with each chunk written to the source.
	// Returned bytes are queued as readable input, which is how a scripted
	// device responds to commands. Called with the mutex held; it must not
	// call back into the source.
	OnWrite func(p []byte) []byte

	// PollErr, ReadErr, and WriteErr are returned by the next matching
	// call when set.
	PollErr  error
	ReadErr  error
	WriteErr error

	// ForceReady makes PollReady report true even with no buffered data,
	// so a subsequent Read returns zero bytes.
	ForceReady bool

	closed bool
}

// NewMockSource returns an empty mock source.
func NewMockSource() *MockSource {
	return &MockSource{}
}

func (m *MockSource) PollReady(timeout time.Duration) (bool, error) {
	m.mu.Lock()
	if err := m.PollErr; err != nil {
		m.mu.Unlock()
		return false, err
	}
	ready := m.ForceReady || m.readable.Len() > 0
	m.mu.Unlock()
	if !ready {
		// Keep a polling caller from spinning hot; real sources block
		// for the full timeout.
		wait := timeout
		if wait > time.Millisecond {
			wait = time.Millisecond
		}
		time.Sleep(wait)
	}
	return ready, nil
}

func (m *MockSource) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ReadErr; err != nil {
		return 0, err
	}
	n, _ := m.readable.Read(p)
	return n, nil
}

func (m *MockSource) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.WriteErr; err != nil {
		return 0, err
	}
	m.written.Write(p)
	if m.OnWrite != nil {
		if reply := m.OnWrite(p); len(reply) > 0 {
			m.readable.Write(reply)
		}
	}
	return len(p), nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// QueueRead appends data to be returned by subsequent Read calls.
func (m *MockSource) QueueRead(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readable.Write(data)
}

// Written returns a copy of everything written to the source so far.
func (m *MockSource) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}

// ResetWritten clears the captured writes.
func (m *MockSource) ResetWritten() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written.Reset()
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
