package nortek

import (
	"errors"
	"fmt"
	"strings"
)

// controlSeq is the wake/escape token the device accepts at any phase. It is
// sent on every entry into the configuration phase.
const controlSeq = "K1W%!Q\r\n"

// Line-protocol markers, matched by substring to tolerate leading noise.
const (
	promptUsername = "Username: "
	promptPassword = "Password: "
	bannerCommand  = "Command Interface\r\n"
	textLoginFail  = "Login failed"
	ackOK          = "OK\r\n"
	ackError       = "ERROR\r\n"
)

// ErrLoginFailed is the terminal error for a rejected login.
var ErrLoginFailed = errors.New("login failed")

// authenticate scans the line buffer for login prompts. The buffer is
// cleared only when a marker is recognized; ambiguous partial input is
// retained for the next poll.
func (s *Session) authenticate() error {
	switch {
	case strings.Contains(s.line, promptUsername):
		s.line = ""
		s.mu.Lock()
		username := s.params.Username
		s.mu.Unlock()
		return s.write([]byte(username + "\n"))

	case strings.Contains(s.line, promptPassword):
		s.line = ""
		s.mu.Lock()
		password := s.params.Password
		s.mu.Unlock()
		return s.write([]byte(password + "\n"))

	case strings.Contains(s.line, bannerCommand):
		s.line = ""
		s.mu.Lock()
		s.step = 0
		s.phase = PhaseConfiguring
		s.mu.Unlock()
		return s.write([]byte(controlSeq))

	case strings.Contains(s.line, textLoginFail):
		return ErrLoginFailed
	}
	return nil
}

// configure advances the command table on each acknowledgement. A negative
// acknowledgement asks the device for its last error and moves to the
// error-recovery phase, which is terminal.
func (s *Session) configure() error {
	switch {
	case strings.Contains(s.line, ackOK):
		s.line = ""
		s.mu.Lock()
		table := s.params.commandTable()
		if s.step >= len(table) {
			s.phase = PhaseCapturing
			s.mu.Unlock()
			return nil
		}
		cmd := table[s.step]
		s.step++
		if s.step == len(table) {
			s.phase = PhaseCapturing
			// Any frame accumulation from a previous capture phase is
			// abandoned; the device ack to the final command is plain
			// text and is discarded by the sync scan.
			s.deframer.Reset()
		}
		s.mu.Unlock()
		return s.write([]byte(cmd))

	case strings.Contains(s.line, ackError):
		s.line = ""
		s.mu.Lock()
		s.phase = PhaseErrorRecovery
		s.mu.Unlock()
		return s.write([]byte("GETERROR\r\n"))
	}
	return nil
}

// recoverError treats the next complete line as the device's description of
// the failed command and raises it as the session's terminal error.
func (s *Session) recoverError() error {
	i := strings.IndexByte(s.line, '\n')
	if i < 0 {
		return nil
	}
	cause := strings.TrimRight(s.line[:i], "\r")
	return fmt.Errorf("device reported error: %s", cause)
}
