package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuietHours is a daily UTC window during which scanning is suppressed, both
// for inbound queries and for the precache scheduler. The zero value is
// disabled. Windows may wrap midnight ("22:00-06:00").
type QuietHours struct {
	startMin int
	endMin   int
	enabled  bool
}

// ParseQuietHours parses "HH:MM-HH:MM". An empty string disables the window.
func ParseQuietHours(s string) (QuietHours, error) {
	if s == "" {
		return QuietHours{}, nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return QuietHours{}, fmt.Errorf("quiet hours %q: want HH:MM-HH:MM", s)
	}
	start, err := parseHHMM(parts[0])
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet hours start: %w", err)
	}
	end, err := parseHHMM(parts[1])
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet hours end: %w", err)
	}
	if start == end {
		return QuietHours{}, fmt.Errorf("quiet hours %q: start equals end", s)
	}
	return QuietHours{startMin: start, endMin: end, enabled: true}, nil
}

// Enabled reports whether a window is configured.
func (q QuietHours) Enabled() bool { return q.enabled }

// Contains reports whether t (in UTC) falls inside the window.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.enabled {
		return false
	}
	t = t.UTC()
	min := t.Hour()*60 + t.Minute()
	if q.startMin < q.endMin {
		return min >= q.startMin && min < q.endMin
	}
	// Wraps midnight.
	return min >= q.startMin || min < q.endMin
}

// Until returns how long after t the window ends, for Retry-After hints.
// Returns zero when t is outside the window.
func (q QuietHours) Until(t time.Time) time.Duration {
	if !q.Contains(t) {
		return 0
	}
	t = t.UTC()
	min := t.Hour()*60 + t.Minute()
	remaining := q.endMin - min
	if remaining <= 0 {
		remaining += 24 * 60
	}
	return time.Duration(remaining) * time.Minute
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("bad time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad time %q: out of range", s)
	}
	return h*60 + m, nil
}
