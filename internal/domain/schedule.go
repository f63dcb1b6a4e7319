package domain

import (
	"errors"
	"time"
)

var ErrInvalidAnchor = errors.New("anchor out of range for cadence")

// Cadence is the recurrence family of a template
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
	CadenceYearly  Cadence = "yearly"
)

// ValidateAnchor checks that the anchor is within range for its cadence.
// Weekly anchors are weekdays 1-7 (1=Monday), monthly anchors are days 1-31.
// Daily and yearly cadences ignore the anchor.
func ValidateAnchor(cadence Cadence, anchor int32) error {
	switch cadence {
	case CadenceDaily, CadenceYearly:
		return nil
	case CadenceWeekly:
		if anchor < 1 || anchor > 7 {
			return ErrInvalidAnchor
		}
		return nil
	case CadenceMonthly:
		if anchor < 1 || anchor > 31 {
			return ErrInvalidAnchor
		}
		return nil
	default:
		return ErrInvalidAnchor
	}
}

// NextOccurrence computes the occurrence strictly after the reference date.
// One call always advances by exactly one period; monthly and yearly results
// clamp to the last day of the target month when the anchor day does not
// exist there (day 31 in a 30-day month, Feb 29 in a non-leap year).
func NextOccurrence(cadence Cadence, anchor int32, ref time.Time) time.Time {
	switch cadence {
	case CadenceDaily:
		return ref.AddDate(0, 0, 1)
	case CadenceWeekly:
		delta := int(anchor) - isoWeekday(ref)
		if delta <= 0 {
			delta += 7
		}
		return ref.AddDate(0, 0, delta)
	case CadenceMonthly:
		year, month := ref.Year(), ref.Month()+1
		return dateWithClampedDay(year, month, int(anchor), ref)
	case CadenceYearly:
		return dateWithClampedDay(ref.Year()+1, ref.Month(), ref.Day(), ref)
	}
	return ref
}

// isoWeekday maps time.Weekday to the 1=Monday..7=Sunday convention.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// dateWithClampedDay builds a date in the given year/month, clamping the day
// to the month's last day. Month may be 13, which time.Date normalizes.
// The time of day is carried over from ref.
func dateWithClampedDay(year int, month time.Month, day int, ref time.Time) time.Time {
	last := lastDayOfMonth(year, month)
	if day > last {
		day = last
	}
	h, m, s := ref.Clock()
	return time.Date(year, month, day, h, m, s, ref.Nanosecond(), ref.Location())
}

// lastDayOfMonth returns the number of days in the given month.
// Day 0 of the following month is the last day of this one.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped returns start advanced by n months, keeping start's
// day-of-month where possible and clamping to month end otherwise.
func AddMonthsClamped(start time.Time, n int) time.Time {
	year, month := start.Year(), start.Month()+time.Month(n)
	return dateWithClampedDay(year, month, start.Day(), start)
}
