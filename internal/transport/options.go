package transport

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// PortOptions are the serial line parameters from the device config file.
// The zero value means "device defaults": 4800 8N1, the DVL's shipping
// configuration.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates o and fills in defaults for unset fields. Parity
// accepts single-letter and spelled-out forms and normalizes to N, E, or O.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = 4800
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}

	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("data bits %d out of range 5-8", o.DataBits)
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return o, fmt.Errorf("stop bits %d: only 1 or 2 supported", o.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(o.Parity)) {
	case "", "N", "NONE":
		o.Parity = "N"
	case "E", "EVEN":
		o.Parity = "E"
	case "O", "ODD":
		o.Parity = "O"
	default:
		return o, fmt.Errorf("parity %q: expected N, E, or O", o.Parity)
	}
	return o, nil
}

// SerialMode converts the options into the go.bug.st/serial mode used when
// opening the port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	parity := map[string]serial.Parity{
		"N": serial.NoParity,
		"E": serial.EvenParity,
		"O": serial.OddParity,
	}[opts.Parity]

	stopBits := serial.OneStopBit
	if opts.StopBits == 2 {
		stopBits = serial.TwoStopBits
	}

	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: stopBits,
		Parity:   parity,
	}, nil
}
