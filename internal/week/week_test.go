// Package week tests for week key computation.
package week

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 30, 0, 0, time.UTC)
}

// TestKey verifies the Monday anchor for every weekday.
func TestKey(t *testing.T) {
	// 2024-06-03 is a Monday.
	cases := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday", date(2024, time.June, 3), "2024-06-03"},
		{"tuesday", date(2024, time.June, 4), "2024-06-03"},
		{"wednesday", date(2024, time.June, 5), "2024-06-03"},
		{"thursday", date(2024, time.June, 6), "2024-06-03"},
		{"friday", date(2024, time.June, 7), "2024-06-03"},
		{"saturday", date(2024, time.June, 8), "2024-06-03"},
		{"sunday_maps_to_previous_monday", date(2024, time.June, 9), "2024-06-03"},
		{"next_monday_starts_new_week", date(2024, time.June, 10), "2024-06-10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Key(tc.in); got != tc.want {
				t.Errorf("Key(%s) = %s, want %s", tc.in.Format(Layout), got, tc.want)
			}
		})
	}
}

// TestKeyAcrossMonthBoundary verifies week keys that anchor in a prior month.
func TestKeyAcrossMonthBoundary(t *testing.T) {
	// 2024-03-01 is a Friday; the week's Monday is 2024-02-26.
	if got := Key(date(2024, time.March, 1)); got != "2024-02-26" {
		t.Errorf("Key() = %s, want 2024-02-26", got)
	}
	// 2024-06-02 is a Sunday; it belongs to the week of 2024-05-27.
	if got := Key(date(2024, time.June, 2)); got != "2024-05-27" {
		t.Errorf("Key() = %s, want 2024-05-27", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid("2024-06-03") {
		t.Error("Valid(2024-06-03) = false, want true")
	}
	if Valid("06/03/2024") {
		t.Error("Valid(06/03/2024) = true, want false")
	}
	if Valid("") {
		t.Error("Valid(\"\") = true, want false")
	}
}
