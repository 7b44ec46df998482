package utils

import (
	"time"
)

// NewYorkLocation is the timezone daily bars are dated in.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to EST
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// marketCloseMinutes is 16:00 New York time.
const marketCloseMinutes = 16 * 60

// IsWeekend reports whether t falls on a Saturday or Sunday in New York.
func IsWeekend(t time.Time) bool {
	wd := t.In(NewYorkLocation).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// LastTradingDay returns the date (midnight, New York) of the most recent
// session whose daily bar is complete at now. Holidays are not known, so a
// holiday counts as a trading day.
func LastTradingDay(now time.Time) time.Time {
	ny := now.In(NewYorkLocation)
	day := time.Date(ny.Year(), ny.Month(), ny.Day(), 0, 0, 0, 0, NewYorkLocation)
	if ny.Hour()*60+ny.Minute() < marketCloseMinutes {
		day = day.AddDate(0, 0, -1)
	}
	for IsWeekend(day) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}
