package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// drainTimeout bounds the follow-up read that collects whatever arrived
// behind a peeked byte.
const drainTimeout = 20 * time.Millisecond

// SerialSource adapts a go.bug.st serial port to the Source contract.
// PollReady is implemented with the port read timeout and a one-byte peek
// that the next Read returns first.
//
// PollReady and Read must be called from a single goroutine; Write is safe
// to call concurrently with them.
type SerialSource struct {
	port   serial.Port
	peek   [1]byte
	peeked bool
}

// OpenSerial opens the serial device at path with the given options.
func OpenSerial(path string, opts PortOptions) (*SerialSource, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return &SerialSource{port: port}, nil
}

func (s *SerialSource) PollReady(timeout time.Duration) (bool, error) {
	if s.peeked {
		return true, nil
	}
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return false, err
	}
	n, err := s.port.Read(s.peek[:])
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Timed out with nothing buffered.
		return false, nil
	}
	s.peeked = true
	return true, nil
}

func (s *SerialSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	if s.peeked {
		p[0] = s.peek[0]
		s.peeked = false
		n = 1
		if len(p) == 1 {
			return n, nil
		}
		p = p[1:]
		// Collect whatever else is already buffered without blocking
		// the worker loop for long.
		if err := s.port.SetReadTimeout(drainTimeout); err != nil {
			return n, nil
		}
		m, err := s.port.Read(p)
		if err != nil {
			// The peeked byte is still a successful read; the error
			// will resurface on the next poll.
			return n, nil
		}
		return n + m, nil
	}
	return s.port.Read(p)
}

func (s *SerialSource) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialSource) Close() error {
	return s.port.Close()
}
