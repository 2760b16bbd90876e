package main

import (
	"encoding/binary"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/dvl.report/internal/nortek"
	"github.com/banshee-data/dvl.report/internal/transport"
)

// fakeDVL scripts a device emulator on top of transport.MockSource for -dev
// mode: it prompts for credentials, acknowledges configuration commands, and
// streams synthetic bottom-track frames once started.
type fakeDVL struct {
	*transport.MockSource

	mu        sync.Mutex
	loginStep int
	streaming bool
	stop      chan struct{}
}

func newFakeDVL() *fakeDVL {
	f := &fakeDVL{MockSource: transport.NewMockSource()}
	f.OnWrite = f.handleWrite
	f.QueueRead([]byte("Username: "))
	return f
}

// handleWrite plays the device side of the handshake. It runs with the
// MockSource mutex held, so replies are returned rather than queued.
func (f *fakeDVL) handleWrite(p []byte) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := string(p)

	if strings.Contains(cmd, "K1W%!Q") {
		f.stopStreamLocked()
		return []byte("OK\r\n")
	}

	if f.loginStep < 2 {
		f.loginStep++
		if f.loginStep == 1 {
			return []byte("Password: ")
		}
		return []byte("Nortek DVL Command Interface\r\n")
	}

	switch {
	case strings.HasPrefix(cmd, "START"):
		if !f.streaming {
			f.streaming = true
			f.stop = make(chan struct{})
			go f.streamFrames(f.stop)
		}
		return []byte("OK\r\n")
	case strings.HasPrefix(cmd, "GETERROR"):
		return []byte("INVALID SETTING: BT RANGE\r\n")
	case strings.HasPrefix(cmd, "MC"),
		strings.HasPrefix(cmd, "SETDVL"),
		strings.HasPrefix(cmd, "SETBT"),
		strings.HasPrefix(cmd, "SETCURPROF"):
		return []byte("OK\r\n")
	default:
		return []byte("ERROR\r\n")
	}
}

func (f *fakeDVL) stopStreamLocked() {
	if f.streaming {
		close(f.stop)
		f.streaming = false
	}
}

// streamFrames emits a synthetic bottom-track frame a few times a second
// until the emulator is interrupted by the escape sequence.
func (f *fakeDVL) streamFrames(stop chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var tick float64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tick++
			frame, err := nortek.EncodeFrame(nortek.TypeBottomTrack, syntheticBottomTrack(tick))
			if err != nil {
				log.Printf("fake dvl: %v", err)
				return
			}
			f.QueueRead(frame)
		}
	}
}

// syntheticBottomTrack builds a payload with a valid solution and slowly
// varying velocities.
func syntheticBottomTrack(tick float64) []byte {
	payload := make([]byte, 160)
	binary.LittleEndian.PutUint32(payload[20:], 0x7<<12) // all axes valid
	putLEFloat32(payload[28:], 14.2+0.1*math.Sin(tick/40))
	putLEFloat32(payload[32:], 1.25)
	putLEFloat32(payload[132:], 0.8*math.Sin(tick/20))
	putLEFloat32(payload[136:], 0.3*math.Cos(tick/20))
	putLEFloat32(payload[140:], 0.05*math.Sin(tick/60))
	return payload
}

func putLEFloat32(b []byte, v float64) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
}
