// internal/schedule/schedule.go

// Package schedule parses human-facing schedule labels such as
// "9:00 AM - 10:00 AM" into canonical 24-hour HH:MM:SS pairs and provides
// the interval arithmetic the booking engine builds on.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	scheduleRe    = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*-\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)
	rentalHoursRe = regexp.MustCompile(`(?i)^\s*(\d+)\s*(?:hr|hour)`)
)

// MalformedScheduleError reports a schedule label that does not match the
// "h:mm AM/PM - h:mm AM/PM" shape.
type MalformedScheduleError struct {
	Label string
}

func (e MalformedScheduleError) Error() string {
	return fmt.Sprintf("malformed schedule %q: expected \"h:mm AM - h:mm PM\"", e.Label)
}

// ParseSchedule converts a label like "9:00 AM - 10:00 AM" into canonical
// "09:00:00"/"10:00:00" start and end times. Malformed labels fail with
// MalformedScheduleError rather than falling back to a default window.
func ParseSchedule(label string) (start, end string, err error) {
	m := scheduleRe.FindStringSubmatch(label)
	if m == nil {
		return "", "", MalformedScheduleError{Label: label}
	}

	startTime, err := to24Hour(m[1], m[2], m[3])
	if err != nil {
		return "", "", MalformedScheduleError{Label: label}
	}
	endTime, err := to24Hour(m[4], m[5], m[6])
	if err != nil {
		return "", "", MalformedScheduleError{Label: label}
	}
	if ToMinutes(endTime) <= ToMinutes(startTime) {
		return "", "", MalformedScheduleError{Label: label}
	}
	return startTime, endTime, nil
}

func to24Hour(hourPart, minutePart, meridiem string) (string, error) {
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 1 || hour > 12 {
		return "", fmt.Errorf("invalid hour %q", hourPart)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", minutePart)
	}

	switch strings.ToUpper(meridiem) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	}
	return fmt.Sprintf("%02d:%02d:00", hour, minute), nil
}

// ToMinutes converts "HH:MM" or "HH:MM:SS" to minutes since midnight.
// Seconds are ignored; malformed input yields 0.
func ToMinutes(value string) int {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 {
		return 0
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return hour*60 + minute
}

// FromMinutes converts minutes since midnight to "HH:MM:SS".
func FromMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect: max(aStart, bStart) < min(aEnd, bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	a1, a2 := ToMinutes(aStart), ToMinutes(aEnd)
	b1, b2 := ToMinutes(bStart), ToMinutes(bEnd)
	return max(a1, b1) < min(a2, b2)
}

// ParseRentalHours extracts the leading integer from labels like "2 hrs" or
// "1 hour". Labels without a recognizable duration default to one hour.
func ParseRentalHours(label string) int {
	m := rentalHoursRe.FindStringSubmatch(label)
	if m == nil {
		return 1
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil || hours < 1 {
		return 1
	}
	return hours
}

// AddHours advances a "HH:MM:SS" time by whole hours, capped at 24:00:00 so
// same-day half-open intervals stay well formed.
func AddHours(start string, hours int) string {
	minutes := ToMinutes(start) + hours*60
	if minutes > 24*60 {
		minutes = 24 * 60
	}
	return FromMinutes(minutes)
}
