// Package nortek implements the session protocol spoken by Nortek-style
// Doppler velocity logs: a text login/configuration handshake followed by a
// continuous stream of checksummed binary frames.
package nortek

import (
	"encoding/binary"
	"fmt"
)

const (
	// SyncByte marks the start of every binary frame.
	SyncByte = 0xA5
	// HeaderSize is the fixed frame header length in bytes.
	HeaderSize = 10
	// MaxPayloadSize is the largest payload a header can declare.
	MaxPayloadSize = 0xFFFF
)

// Header byte offsets. Multi-byte fields are little-endian.
const (
	offHeaderSize      = 1
	offType            = 2
	offPayloadLen      = 4
	offPayloadChecksum = 6
	offHeaderChecksum  = 8
)

// checksumSeed is the initial value of the 16-bit frame checksum.
const checksumSeed = 0xB58C

// Checksum computes the frame checksum: a wraparound sum of little-endian
// 16-bit words starting from the seed. An odd trailing byte contributes one
// final term with the byte in the high position.
func Checksum(data []byte) uint16 {
	sum := uint16(checksumSeed)
	i := 0
	for ; i+1 < len(data); i += 2 {
		sum += binary.LittleEndian.Uint16(data[i:])
	}
	if i < len(data) {
		sum += uint16(data[i]) << 8
	}
	return sum
}

// Frame is one validated application frame. Both checksums have already been
// verified by the time a Frame exists.
type Frame struct {
	// Type is the message discriminator from header offset 2.
	Type byte
	// Payload holds the frame body, excluding the header.
	Payload []byte
}

// EncodeFrame renders a complete wire frame around the given payload. It is
// used by tests and by the dev-mode device emulator.
func EncodeFrame(typ byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload length %d exceeds maximum %d", len(payload), MaxPayloadSize)
	}
	b := make([]byte, HeaderSize+len(payload))
	b[0] = SyncByte
	b[offHeaderSize] = HeaderSize
	b[offType] = typ
	binary.LittleEndian.PutUint16(b[offPayloadLen:], uint16(len(payload)))
	binary.LittleEndian.PutUint16(b[offPayloadChecksum:], Checksum(payload))
	binary.LittleEndian.PutUint16(b[offHeaderChecksum:], Checksum(b[:offHeaderChecksum]))
	copy(b[HeaderSize:], payload)
	return b, nil
}
