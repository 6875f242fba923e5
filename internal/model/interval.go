package model

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the sampling period of a generated series.
type Interval string

const (
	Daily    Interval = "1d"
	FourHour Interval = "4h"
	Weekly   Interval = "1w"
)

// Intervals returns every supported interval in full-mode generation order.
func Intervals() []Interval {
	return []Interval{Weekly, FourHour, Daily}
}

// ParseInterval accepts the wire codes (1d, 4h, 1w) and their long aliases.
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1d", "daily", "day":
		return Daily, nil
	case "4h", "4-hourly", "4hourly":
		return FourHour, nil
	case "1w", "weekly", "week":
		return Weekly, nil
	default:
		return "", fmt.Errorf("unsupported interval %q (use: 1d, 4h, 1w)", s)
	}
}

// Valid reports whether iv is one of the enumerated intervals.
func (iv Interval) Valid() bool {
	return iv.Duration() > 0
}

// Duration is the fixed spacing between two boundaries. Zero for unknown intervals.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Daily:
		return 24 * time.Hour
	case FourHour:
		return 4 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

func (iv Interval) String() string { return string(iv) }

// Label is the human name used in run descriptions.
func (iv Interval) Label() string {
	switch iv {
	case Daily:
		return "Daily"
	case FourHour:
		return "4-hourly"
	case Weekly:
		return "Weekly"
	default:
		return string(iv)
	}
}
