package nortek

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the handshake/session state.
type Phase int

const (
	PhaseAuthenticating Phase = iota
	PhaseConfiguring
	PhaseCapturing
	PhaseErrorRecovery
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseConfiguring:
		return "configuring"
	case PhaseCapturing:
		return "capturing"
	case PhaseErrorRecovery:
		return "error-recovery"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

const (
	// readBufferSize bounds a single read and the retained line buffer.
	readBufferSize = 4096
	// pollTimeout bounds how long one loop iteration blocks, and so the
	// worst-case shutdown latency.
	pollTimeout = time.Second
)

// ErrZeroRead is the terminal error for a zero-length read after the source
// reported data ready.
var ErrZeroRead = errors.New("invalid read size")

// ByteSource is the device transport: a blocking byte stream with
// poll-with-timeout semantics. Writes may come from the worker goroutine and
// from Reconfigure concurrently.
type ByteSource interface {
	PollReady(timeout time.Duration) (bool, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Emitter receives validated frames and, at most once, the session's
// terminal error. No frames follow a Fatal call.
type Emitter interface {
	Frame(Frame)
	Fatal(error)
}

// Session drives one device connection: login, configuration, then
// continuous frame capture. One worker goroutine owns all reads; Reconfigure
// and Phase may be called from any goroutine.
type Session struct {
	id      uuid.UUID
	src     ByteSource
	emitter Emitter

	// mu guards phase, step, params, and writeErr. It is never held
	// across blocking reads.
	mu       sync.Mutex
	phase    Phase
	step     int
	params   Params
	writeErr error

	// Worker-owned; no locking required.
	line     string
	deframer *Deframer
	buf      []byte

	done chan struct{}
	err  error
}

// NewSession prepares a session over src. Start must be called to begin the
// worker.
func NewSession(src ByteSource, params Params, emitter Emitter) *Session {
	return &Session{
		id:       uuid.New(),
		src:      src,
		emitter:  emitter,
		phase:    PhaseAuthenticating,
		params:   params,
		deframer: NewDeframer(),
		buf:      make([]byte, readBufferSize),
		done:     make(chan struct{}),
	}
}

// ID identifies this session instance across restarts of the same device.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Start launches the polling worker. The worker runs until ctx is cancelled
// or a fatal session error occurs, whichever comes first.
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for ctx.Err() == nil {
		if err := s.poll(); err != nil {
			s.err = err
			s.emitter.Fatal(err)
			return
		}
	}
}

// Done is closed when the worker exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error, or nil after a clean stop. Valid only
// after Done is closed.
func (s *Session) Err() error {
	return s.err
}

// Phase returns a snapshot of the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Params returns a snapshot of the current device parameters.
func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Reconfigure interrupts the device with the escape sequence and restarts
// the configuration exchange with the new parameters. It returns
// immediately; the command exchange happens on subsequent polls. A failed
// escape write surfaces as the session's terminal error on the next poll.
func (s *Session) Reconfigure(params Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.src.Write([]byte(controlSeq)); err != nil && s.writeErr == nil {
		s.writeErr = fmt.Errorf("write control sequence: %w", err)
	}
	s.phase = PhaseConfiguring
	s.step = 0
	s.params = params
}

// poll performs one blocking loop iteration: wait for data, read a bounded
// chunk, and dispatch it to the current phase. A nil return means the loop
// should continue; any error is fatal to the session.
func (s *Session) poll() error {
	s.mu.Lock()
	werr := s.writeErr
	s.mu.Unlock()
	if werr != nil {
		return werr
	}

	ready, err := s.src.PollReady(pollTimeout)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if !ready {
		return nil
	}

	n, err := s.src.Read(s.buf)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if n == 0 {
		return ErrZeroRead
	}
	chunk := s.buf[:n]

	switch s.Phase() {
	case PhaseAuthenticating:
		s.appendLine(chunk)
		return s.authenticate()
	case PhaseConfiguring:
		s.appendLine(chunk)
		return s.configure()
	case PhaseCapturing:
		s.deframer.Feed(chunk, s.emitter.Frame)
		return nil
	default: // PhaseErrorRecovery
		s.appendLine(chunk)
		return s.recoverError()
	}
}

// appendLine accumulates handshake text, dropping the oldest bytes once the
// retained buffer exceeds one read buffer.
func (s *Session) appendLine(chunk []byte) {
	s.line += string(chunk)
	if len(s.line) > readBufferSize {
		s.line = s.line[len(s.line)-readBufferSize:]
	}
}

func (s *Session) write(p []byte) error {
	if _, err := s.src.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
