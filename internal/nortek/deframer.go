package nortek

import (
	"bytes"
	"encoding/binary"
)

type deframerState int

const (
	stateSeekHeader deframerState = iota
	stateCacheHeader
	stateCacheData
)

// Deframer turns a raw byte stream into validated frames. It tolerates
// arbitrary read boundaries and resynchronizes after corruption without
// discarding more bytes than necessary.
//
// The accumulator is reused across frames and is bounded by the largest
// possible frame; emitted payloads are copied out of it.
type Deframer struct {
	state deframerState
	buf   []byte
	// need is the total accumulator length required to complete the
	// current frame candidate, valid in stateCacheData.
	need int
}

// NewDeframer returns a Deframer seeking its first sync byte.
func NewDeframer() *Deframer {
	return &Deframer{buf: make([]byte, 0, HeaderSize+MaxPayloadSize)}
}

// Reset abandons any partially accumulated frame.
func (d *Deframer) Reset() {
	d.state = stateSeekHeader
	d.buf = d.buf[:0]
}

// Pending reports how many bytes of an in-progress frame are cached.
func (d *Deframer) Pending() int {
	return len(d.buf)
}

// Feed consumes one read chunk and calls emit for every frame completed and
// validated by it. Incomplete frames stay cached until a later Feed.
func (d *Deframer) Feed(p []byte, emit func(Frame)) {
	for {
		switch d.state {
		case stateSeekHeader:
			// Bytes shifted back from an earlier candidate have not
			// been tested yet, so scan them before new input.
			if i := bytes.IndexByte(d.buf, SyncByte); i >= 0 {
				d.shift(i)
				d.state = stateCacheHeader
				continue
			}
			d.buf = d.buf[:0]
			i := bytes.IndexByte(p, SyncByte)
			if i < 0 {
				return
			}
			p = p[i:]
			d.state = stateCacheHeader

		case stateCacheHeader:
			p = d.fill(p, HeaderSize)
			if len(d.buf) < HeaderSize {
				return
			}
			if d.buf[offHeaderSize] != HeaderSize ||
				binary.LittleEndian.Uint16(d.buf[offHeaderChecksum:]) != Checksum(d.buf[:offHeaderChecksum]) {
				d.resync()
				continue
			}
			d.need = HeaderSize + int(binary.LittleEndian.Uint16(d.buf[offPayloadLen:]))
			d.state = stateCacheData

		case stateCacheData:
			p = d.fill(p, d.need)
			if len(d.buf) < d.need {
				return
			}
			payload := d.buf[HeaderSize:d.need]
			if binary.LittleEndian.Uint16(d.buf[offPayloadChecksum:]) != Checksum(payload) {
				// The header matched by coincidence; relocate within
				// the cached header bytes rather than the raw input.
				d.resync()
				continue
			}
			emit(Frame{Type: d.buf[offType], Payload: append([]byte(nil), payload...)})
			d.shift(d.need)
			d.state = stateSeekHeader
		}
	}
}

// fill copies bytes from p into the accumulator until total bytes are cached
// or p runs out, returning the unconsumed remainder of p.
func (d *Deframer) fill(p []byte, total int) []byte {
	if len(d.buf) >= total {
		return p
	}
	take := total - len(d.buf)
	if take > len(p) {
		take = len(p)
	}
	d.buf = append(d.buf, p[:take]...)
	return p[take:]
}

// shift discards the first n cached bytes, keeping the remainder in place.
func (d *Deframer) shift(n int) {
	m := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:m]
}

// resync scans the cached header bytes for another sync byte after a
// checksum mismatch. The byte at offset zero already failed as a candidate
// and is never re-tested: a stray sync byte followed by garbage would
// otherwise never make progress.
func (d *Deframer) resync() {
	region := d.buf
	if len(region) > HeaderSize {
		region = region[:HeaderSize]
	}
	if i := bytes.IndexByte(region[1:], SyncByte); i >= 0 {
		d.shift(i + 1)
		d.state = stateCacheHeader
		return
	}
	d.buf = d.buf[:0]
	d.state = stateSeekHeader
}
