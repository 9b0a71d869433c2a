package selector

import (
	"testing"
	"time"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"7 days", 7 * 24 * time.Hour},
		{"24 hours", 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"1.5h", 90 * time.Minute},
		{"2 weeks", 14 * 24 * time.Hour},
		{"45 secs", 45 * time.Second},
		{"  3 Days  ", 3 * 24 * time.Hour},
		{"10", 10 * 24 * time.Hour},
		{"", DefaultInterval},
		{"soon", DefaultInterval},
		{"7 fortnights", 7 * 24 * time.Hour},
	}

	for _, c := range cases {
		if got := ParseInterval(c.in); got != c.want {
			t.Errorf("ParseInterval(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
