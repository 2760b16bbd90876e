package nortek

import "fmt"

// Params holds the credentials and acquisition parameters negotiated with
// the device during the configuration phase.
type Params struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Rate     float64 `json:"rate"`           // sampling rate in Hz
	SoundVel float64 `json:"sound_velocity"` // m/s; 0 lets the device measure
	Salinity float64 `json:"salinity"`       // ppt
	BTRange  float64 `json:"bt_range"`       // bottom-track range, m
	VelRange float64 `json:"velocity_range"` // m/s
	PwrLevel float64 `json:"power_level"`    // dB
}

// DefaultParams returns the parameter set the device ships with.
func DefaultParams() Params {
	return Params{
		Username: "nortek",
		Rate:     4.0,
		BTRange:  30.0,
		VelRange: 5.0,
		PwrLevel: -20.0,
	}
}

// commandTable renders the ordered configuration command sequence for p.
// Each entry is sent after the device acknowledges the previous one.
func (p Params) commandTable() []string {
	return []string{
		"MC\r\n",
		fmt.Sprintf("SETDVL,0,\"OFF\",\"INTSR\",%.1f,\"\",%.1f,%.1f\r\n", p.Rate, p.SoundVel, p.Salinity),
		fmt.Sprintf("SETBT,%.2f,%.2f,4,0,307,%.1f,\"XYZ\"\r\n", p.BTRange, p.VelRange, p.PwrLevel),
		fmt.Sprintf("SETCURPROF,%.2f,4,0,%.1f,\"XYZ\"\r\n", p.VelRange, p.PwrLevel),
		"START\r\n",
	}
}

// CommandCount reports the number of configuration commands exchanged
// before capture starts.
func CommandCount() int {
	return len(Params{}.commandTable())
}
