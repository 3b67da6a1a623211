package display

import (
	"strconv"
	"time"
)

// NoTimestamp is shown when there is nothing to measure from.
const NoTimestamp = "--"

// SinceLabel renders how long ago t was, in the compact form used on tiles:
// "0'" under a minute, then minutes ("7'"), hours ("3h"), days ("2d") and
// weeks ("5w"). Future timestamps count as now.
func SinceLabel(now, t time.Time) string {
	if t.IsZero() {
		return NoTimestamp
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Hour:
		return strconv.Itoa(int(d/time.Minute)) + "'"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	case d < 7*24*time.Hour:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d"
	default:
		return strconv.Itoa(int(d/(7*24*time.Hour))) + "w"
	}
}
