// Package week computes the Monday-anchored week key used to partition
// items into weekly batches.
package week

import "time"

// Layout is the wire format of a week key.
const Layout = "2006-01-02"

// Key returns the ISO date of the Monday anchoring the week containing t.
// Sunday counts as day 7 of the previous week, so a Sunday timestamp maps
// back six days.
func Key(t time.Time) string {
	d := t
	if wd := d.Weekday(); wd == time.Sunday {
		d = d.AddDate(0, 0, -6)
	} else {
		d = d.AddDate(0, 0, -(int(wd) - 1))
	}
	return d.Format(Layout)
}

// Valid reports whether s parses as a week key date.
func Valid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}
