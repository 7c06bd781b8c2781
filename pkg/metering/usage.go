package metering

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultWindowHours is the reporting window applied when a tool call
// omits the hours argument.
const DefaultWindowHours = 24

// Window is a UTC reporting window ending at the anchor time.
type Window struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
	Hours float64   `json:"hours"`
}

// WindowFor computes the window of the given length ending at now.
// Bounds are truncated to whole seconds so they render as plain
// RFC 3339 timestamps.
func WindowFor(now time.Time, hours float64) Window {
	end := now.UTC().Truncate(time.Second)
	start := end.Add(-time.Duration(hours * float64(time.Hour))).Truncate(time.Second)
	return Window{Start: start, End: end, Hours: hours}
}

func (w Window) query() url.Values {
	values := url.Values{}
	values.Set("start_time", w.Start.Format(time.RFC3339))
	values.Set("end_time", w.End.Format(time.RFC3339))
	return values
}

// ParseHours validates an hours argument. Numbers are taken as-is,
// numeric strings are converted; everything else is rejected. The
// value must be finite and greater than zero.
func ParseHours(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return checkHours(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hours value %q", t)
		}
		return checkHours(f)
	default:
		return 0, fmt.Errorf("invalid hours value %v", t)
	}
}

func checkHours(hours float64) (float64, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return 0, fmt.Errorf("hours must be a finite number greater than zero, got %v", hours)
	}
	return hours, nil
}
