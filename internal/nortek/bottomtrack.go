package nortek

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Frame type discriminators produced by the device.
const (
	TypeAverageData byte = 0x16
	TypeBottomTrack byte = 0x1B
)

// Bottom-track payload field offsets (little-endian).
const (
	btOffStatus      = 20
	btOffTemperature = 28
	btOffPressure    = 32
	btOffVelX        = 132
	btOffVelY        = 136
	btOffVelZ        = 140
)

// btMinPayload is the smallest payload holding every field we decode.
const btMinPayload = btOffVelZ + 4

// ErrShortPayload reports a bottom-track payload too small to decode.
var ErrShortPayload = errors.New("bottom track payload too short")

// velocityValidMask covers the three per-axis validity bits of the status
// word; all three must be set for the velocity solution to be usable.
const velocityValidMask = 0x07

// BottomTrack is the decoded subset of a bottom-track record. Field values
// are the device's raw readings; unit conversion and frame rotation belong
// to downstream consumers.
type BottomTrack struct {
	VelX        float32 `json:"vel_x"`
	VelY        float32 `json:"vel_y"`
	VelZ        float32 `json:"vel_z"`
	Pressure    float32 `json:"pressure"`
	Temperature float32 `json:"temperature"`
	Validity    uint8   `json:"validity"`
}

// Valid reports whether all three velocity components are flagged good.
func (b BottomTrack) Valid() bool {
	return b.Validity == velocityValidMask
}

// DecodeBottomTrack extracts the bottom-track fields from a validated frame.
func DecodeBottomTrack(f Frame) (BottomTrack, error) {
	if f.Type != TypeBottomTrack {
		return BottomTrack{}, fmt.Errorf("frame type 0x%02x is not bottom track", f.Type)
	}
	if len(f.Payload) < btMinPayload {
		return BottomTrack{}, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(f.Payload))
	}
	status := binary.LittleEndian.Uint32(f.Payload[btOffStatus:])
	return BottomTrack{
		VelX:        leFloat32(f.Payload[btOffVelX:]),
		VelY:        leFloat32(f.Payload[btOffVelY:]),
		VelZ:        leFloat32(f.Payload[btOffVelZ:]),
		Pressure:    leFloat32(f.Payload[btOffPressure:]),
		Temperature: leFloat32(f.Payload[btOffTemperature:]),
		Validity:    uint8((status >> 12) & velocityValidMask),
	}, nil
}

func leFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
