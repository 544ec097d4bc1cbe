package services

import "time"

// dayOf truncates a timestamp to its calendar day at midnight UTC. Every
// snapshot date and day comparison goes through this so date equality is
// exact across drivers.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfDay is the last counted instant of a calendar day.
func endOfDay(day time.Time) time.Time {
	return day.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
}

// mondayOf returns the Monday starting the ISO week containing day.
func mondayOf(day time.Time) time.Time {
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started six days back
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// daysBetween counts whole days from a to b, negative when b precedes a.
func daysBetween(a, b time.Time) int {
	return int(dayOf(b).Sub(dayOf(a)).Hours() / 24)
}
