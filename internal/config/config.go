// Package config loads the device parameter file. Fields omitted from the
// JSON keep their defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/dvl.report/internal/nortek"
	"github.com/banshee-data/dvl.report/internal/transport"
)

// DeviceConfig mirrors nortek.Params with pointer-typed fields so that only
// the values present in the file override the defaults. The serial section
// is passed through to the transport layer unchanged.
type DeviceConfig struct {
	Username *string  `json:"username,omitempty"`
	Password *string  `json:"password,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
	SoundVel *float64 `json:"sound_velocity,omitempty"`
	Salinity *float64 `json:"salinity,omitempty"`
	BTRange  *float64 `json:"bt_range,omitempty"`
	VelRange *float64 `json:"velocity_range,omitempty"`
	PwrLevel *float64 `json:"power_level,omitempty"`

	Serial transport.PortOptions `json:"serial,omitempty"`
}

// Load reads a DeviceConfig from a JSON file. The file must have a .json
// extension and stay under the size cap.
func Load(path string) (*DeviceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg DeviceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Params merges the file values over the device defaults.
func (c *DeviceConfig) Params() nortek.Params {
	p := nortek.DefaultParams()
	if c == nil {
		return p
	}
	if c.Username != nil {
		p.Username = *c.Username
	}
	if c.Password != nil {
		p.Password = *c.Password
	}
	if c.Rate != nil {
		p.Rate = *c.Rate
	}
	if c.SoundVel != nil {
		p.SoundVel = *c.SoundVel
	}
	if c.Salinity != nil {
		p.Salinity = *c.Salinity
	}
	if c.BTRange != nil {
		p.BTRange = *c.BTRange
	}
	if c.VelRange != nil {
		p.VelRange = *c.VelRange
	}
	if c.PwrLevel != nil {
		p.PwrLevel = *c.PwrLevel
	}
	return p
}
