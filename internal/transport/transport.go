// Package transport provides byte-stream handles for device connections:
// a local serial port or a tcp://host:port bridge, plus an in-memory mock
// for tests and dev mode. All sources share poll-with-timeout semantics so
// the session worker can remain cancellable.
package transport

import (
	"io"
	"strings"
	"time"
)

// Source is a device byte stream. PollReady blocks up to timeout and
// reports whether a Read would return data; a false result with a nil error
// is an ordinary timeout.
type Source interface {
	PollReady(timeout time.Duration) (bool, error)
	io.ReadWriteCloser
}

// Open connects to the device named by addr: a tcp://host:port URL or a
// serial device path.
func Open(addr string, opts PortOptions) (Source, error) {
	if hostport, ok := strings.CutPrefix(addr, "tcp://"); ok {
		return DialTCP(hostport)
	}
	return OpenSerial(addr, opts)
}
