// Package duration renders time.Duration values with calendar-scale
// units on top of Go's hour-and-below notation, so a config dump shows
// "30d" instead of "720h0m0s".
package duration

import (
	"fmt"
	"strings"
	"time"
)

// Calendar units, using the common 30-day month and 365-day year
// approximations.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

// units in descending order of size.
var units = []struct {
	size  time.Duration
	label string
}{
	{Year, "y"},
	{Month, "mo"},
	{Week, "w"},
	{Day, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
	{time.Millisecond, "ms"},
	{time.Microsecond, "µs"},
	{time.Nanosecond, "ns"},
}

// Format renders d using the largest fitting units and omits zero
// components: 26 hours becomes "1d2h", 90 seconds becomes "1m30s".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	for _, u := range units {
		if n := d / u.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, u.label)
			d -= n * u.size
		}
	}
	return b.String()
}
