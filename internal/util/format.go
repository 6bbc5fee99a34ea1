package util //nolint:revive // package name util hosts shared formatting helpers for log output

import "time"

// FormatDuration formats a time.Duration for log output, handling edge cases.
// Returns "0s" for zero or negative durations, truncates to milliseconds for readability.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}
