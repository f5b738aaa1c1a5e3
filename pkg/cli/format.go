package cli

import "time"

// TimeLayout is used for times in table output.
const TimeLayout = "2006-01-02 15:04:05.000"

// FormatTime formats t in UTC. The zero time prints as "-".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(TimeLayout)
}

// FormatInterval formats the half-open interval [start, end). An open end
// prints as "now".
func FormatInterval(start, end time.Time) string {
	e := "now"
	if !end.IsZero() {
		e = FormatTime(end)
	}
	return "[" + FormatTime(start) + ", " + e + ")"
}

// ParseTime accepts RFC 3339 (with or without fractional seconds) and the
// table layout. An empty string yields the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}
