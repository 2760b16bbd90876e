package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// TCPSource adapts a TCP connection (serial-over-IP bridge, or the
// pcap-replay tool) to the Source contract using read deadlines and the
// same one-byte peek as SerialSource.
type TCPSource struct {
	conn   net.Conn
	peek   [1]byte
	peeked bool
}

// DialTCP connects to a device bridge at host:port.
func DialTCP(hostport string) (*TCPSource, error) {
	conn, err := net.Dial("tcp", hostport)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", hostport, err)
	}
	return &TCPSource{conn: conn}, nil
}

func (t *TCPSource) PollReady(timeout time.Duration) (bool, error) {
	if t.peeked {
		return true, nil
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, err
	}
	n, err := t.conn.Read(t.peek[:])
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	t.peeked = true
	return true, nil
}

func (t *TCPSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if t.peeked {
		p[0] = t.peek[0]
		t.peeked = false
		if len(p) == 1 {
			return 1, nil
		}
		if err := t.conn.SetReadDeadline(time.Now().Add(drainTimeout)); err != nil {
			return 1, nil
		}
		m, err := t.conn.Read(p[1:])
		if err != nil {
			// The peeked byte still counts; a persistent failure
			// resurfaces on the next poll.
			return 1, nil
		}
		return 1 + m, nil
	}
	if err := t.conn.SetReadDeadline(time.Time{}); err != nil {
		return 0, err
	}
	return t.conn.Read(p)
}

func (t *TCPSource) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *TCPSource) Close() error {
	return t.conn.Close()
}
