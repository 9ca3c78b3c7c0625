package ui

import (
	"testing"
	"time"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   int64 // seconds
		want string
	}{
		{"negative", -5, "now"},
		{"subsecond", 0, "now"},
		{"seconds", 12, "12s"},
		{"minutes", 61, "1m"},
		{"hours_only", 2*60*60 + 10, "2h"},
		{"hours_minutes", 2*60*60 + 3*60, "2h 3m"},
		{"days", 24 * 60 * 60, "1d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := humanizeDuration(timeSeconds(tc.in))
			if got != tc.want {
				t.Fatalf("humanizeDuration(%d) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	got := truncateMiddle("http://store.example.com/api/v1", 12)
	if got == "http://store.example.com/api/v1" {
		t.Fatalf("expected truncation")
	}
	if len([]rune(got)) > 12 {
		t.Fatalf("got %q (%d runes), want <=12", got, len([]rune(got)))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("numpy", 10); got != "numpy" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("scikit-learn", 8); got != "sciki..." {
		t.Fatalf("truncate = %q, want sciki...", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("truncate limit<=3 = %q, want abc", got)
	}
}

func TestFit(t *testing.T) {
	if got := fit("numpy", 8); got != "numpy   " {
		t.Fatalf("fit pad = %q", got)
	}
	if got := fit("matplotlib-base", 8); len([]rune(got)) != 8 {
		t.Fatalf("fit truncate = %q, want 8 runes", got)
	}
	if got := fit("x", 0); got != "" {
		t.Fatalf("fit zero width = %q, want empty", got)
	}
}

func TestScrollStart(t *testing.T) {
	cases := []struct {
		selected, total, visible, want int
	}{
		{0, 5, 10, 0},
		{0, 100, 10, 0},
		{50, 100, 10, 45},
		{99, 100, 10, 90},
		{3, 100, 0, 0},
	}
	for _, tc := range cases {
		if got := scrollStart(tc.selected, tc.total, tc.visible); got != tc.want {
			t.Fatalf("scrollStart(%d, %d, %d) = %d, want %d", tc.selected, tc.total, tc.visible, got, tc.want)
		}
	}
}

func timeSeconds(sec int64) time.Duration {
	return time.Duration(sec) * time.Second
}
