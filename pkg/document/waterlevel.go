package document

import (
	"github.com/niktheblak/waterlevel-uploader/pkg/sensor"
	"github.com/niktheblak/waterlevel-uploader/pkg/timestamp"
)

const (
	FieldDepth     = "depth"
	FieldBattery   = "battery"
	FieldTimestamp = "timestamp"

	// readings are stamped at the very end of their second
	waterLevelNanos = 999999999
)

// NewWaterLevel builds the document uploaded for a single reading.
// A nil formatter uses the local time zone.
func NewWaterLevel(r sensor.Reading, f *timestamp.Formatter) *Document {
	if f == nil {
		f = new(timestamp.Formatter)
	}
	var sec uint64
	if unix := r.Time.Unix(); unix > 0 {
		sec = uint64(unix)
	}
	return New().
		Add(FieldDepth, Double(r.Depth)).
		Add(FieldBattery, Double(r.BatteryVoltage)).
		Add(FieldTimestamp, Timestamp(f.Format(sec, waterLevelNanos)))
}
