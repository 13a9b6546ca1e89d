package main

import "time"

// currentMonday returns the Monday of the current week at midnight UTC.
// Uses AddDate to safely handle month/year boundaries — direct day subtraction
// can produce day=0 or negative, which time.Date normalizes but is confusing.
func currentMonday() time.Time {
	return mondayOf(time.Now().UTC())
}

// mondayOf returns the Monday of the week containing t, at midnight UTC.
func mondayOf(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	weekday := int(t.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	return t.AddDate(0, 0, -(weekday - 1))
}

// weekStartFor returns the Monday-anchored week-start key (YYYY-MM-DD) for a
// daily-log date string.
func weekStartFor(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return mondayOf(t).Format("2006-01-02"), nil
}

// weekdayName returns the schedule's weekday key ("Monday".."Sunday") for a
// daily-log date string.
func weekdayName(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return t.Weekday().String(), nil
}

// weekNumber computes the report id's week number: days elapsed since Jan 1
// padded by Jan 1's weekday, divided into 7-day blocks. Sunday counts as day 0
// of the week here, matching the ids already present in the report store.
func weekNumber(t time.Time) int {
	oneJan := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	days := int(t.Sub(oneJan).Hours() / 24)
	n := (days + int(oneJan.Weekday()) + 1 + 6) / 7
	if n < 1 {
		n = 1
	}
	return n
}

// dateForDay returns the calendar date (YYYY-MM-DD) of a weekday within the
// week starting at weekStart. weekStart must already be a valid Monday key and
// day a valid weekday name; both are validated at the handler boundary.
func dateForDay(weekStart, day string) string {
	t, _ := time.Parse("2006-01-02", weekStart)
	for i, name := range daysOfWeek {
		if name == day {
			return t.AddDate(0, 0, i).Format("2006-01-02")
		}
	}
	return weekStart
}

// todayStr returns today's date key in UTC.
func todayStr() string {
	return time.Now().UTC().Format("2006-01-02")
}

// nowISO returns the current time as the ISO-8601 string the documents use
// for createdAt/updatedAt fields.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
