package sensor

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidReading = errors.New("invalid reading")

// Reading is one water level measurement
type Reading struct {
	Depth          float64   `json:"depth"`
	BatteryVoltage float64   `json:"battery_voltage"`
	Time           time.Time `json:"ts"`
}

func (r Reading) Validate() error {
	if !finite(r.Depth) {
		return fmt.Errorf("%w: depth %v", ErrInvalidReading, r.Depth)
	}
	if !finite(r.BatteryVoltage) {
		return fmt.Errorf("%w: battery voltage %v", ErrInvalidReading, r.BatteryVoltage)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
