package selector

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultInterval is the fairness window used when none is configured.
const DefaultInterval = 7 * 24 * time.Hour

var intervalRegex = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var intervalUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "wk": 7 * 24 * time.Hour, "wks": 7 * 24 * time.Hour,
	"week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParseInterval converts a human-readable window like "7 days", "24 hours"
// or "90m" into a duration. Bare numbers are days; anything unparseable
// falls back to DefaultInterval.
func ParseInterval(text string) time.Duration {
	if text == "" {
		return DefaultInterval
	}

	parts := intervalRegex.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if parts == nil {
		return DefaultInterval
	}

	value, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return DefaultInterval
	}

	unit := parts[2]
	if unit == "" {
		unit = "days"
	}
	factor, ok := intervalUnits[unit]
	if !ok {
		factor = intervalUnits["days"]
	}

	return time.Duration(value * float64(factor))
}
