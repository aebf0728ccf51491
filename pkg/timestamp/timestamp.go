package timestamp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

const (
	// MaxSeconds is the largest accepted Unix time (year 9999 territory).
	MaxSeconds uint64 = 0x3afff4417f
	// MaxNanoseconds is the largest accepted sub-second offset.
	MaxNanoseconds uint32 = 0x3b9ac9ff

	layout = "2006-01-02T15:04:05"
)

// Formatter renders (seconds, nanoseconds) pairs as
// YYYY-MM-DDTHH:MM:SS[.fffffffff]Z.
//
// The calendar fields are taken from Location, which defaults to the
// process local time zone. The trailing Z is always appended, so the output
// is only a true UTC timestamp when Location is UTC or the local zone is UTC.
// Seconds are clamped before the zone is applied, so in zones east of UTC
// the maximum renders in year 10000 with a five digit year.
type Formatter struct {
	Location *time.Location
	Logger   *slog.Logger
}

var defaultFormatter = &Formatter{}

// Format formats the timestamp using the local time zone.
func Format(seconds uint64, nanoseconds uint32) string {
	return defaultFormatter.Format(seconds, nanoseconds)
}

// FormatTime formats t using the local time zone.
func FormatTime(t time.Time) string {
	return defaultFormatter.FormatTime(t)
}

// UTC returns a formatter that renders UTC calendar fields.
func UTC() *Formatter {
	return &Formatter{Location: time.UTC}
}

func (f *Formatter) Format(seconds uint64, nanoseconds uint32) string {
	if seconds > MaxSeconds {
		f.logger().LogAttrs(context.Background(), slog.LevelDebug, "Clamping seconds", slog.Uint64("seconds", seconds), slog.Uint64("max", MaxSeconds))
		seconds = MaxSeconds
	}
	if nanoseconds > MaxNanoseconds {
		f.logger().LogAttrs(context.Background(), slog.LevelDebug, "Clamping nanoseconds", slog.Uint64("nanoseconds", uint64(nanoseconds)), slog.Uint64("max", uint64(MaxNanoseconds)))
		nanoseconds = MaxNanoseconds
	}
	t := time.Unix(int64(seconds), 0).In(f.location())
	b := new(strings.Builder)
	b.WriteString(t.Format(layout))
	if nanoseconds > 0 {
		fmt.Fprintf(b, ".%09d", nanoseconds)
	}
	b.WriteByte('Z')
	return b.String()
}

// FormatTime formats t. Times before the Unix epoch are formatted as the epoch.
func (f *Formatter) FormatTime(t time.Time) string {
	sec := t.Unix()
	if sec < 0 {
		return f.Format(0, 0)
	}
	return f.Format(uint64(sec), uint32(t.Nanosecond()))
}

func (f *Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f *Formatter) logger() *slog.Logger {
	if f.Logger == nil {
		return discard
	}
	return f.Logger
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))
