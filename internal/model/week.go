package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekStartLayout is the ISO date layout used for week starts.
const WeekStartLayout = "2006-01-02"

// DaysPerWeek is the number of day slots in a weekly plan.
const DaysPerWeek = 7

// Day is a day-of-week discriminator, Monday=0 through Sunday=6.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [DaysPerWeek]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// AllDays returns the seven day slots in calendar order.
func AllDays() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

func (d Day) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Day) String() string {
	if !d.Valid() {
		return "day(" + strconv.Itoa(int(d)) + ")"
	}
	return dayNames[d]
}

// ParseDay accepts either the numeric index or the lowercase English name.
func ParseDay(s string) (Day, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		d := Day(n)
		if !d.Valid() {
			return 0, ErrInvalidDay
		}
		return d, nil
	}
	for i, name := range dayNames {
		if name == s {
			return Day(i), nil
		}
	}
	return 0, ErrInvalidDay
}

// MondayOf returns the week start of the ISO week containing t.
func MondayOf(t time.Time) string {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(WeekStartLayout)
}

// ParseWeekStart parses s and checks that it names a Monday.
func ParseWeekStart(s string) (time.Time, error) {
	t, err := time.Parse(WeekStartLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeekStart, s)
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("%w: %s is a %s", ErrInvalidWeekStart, s, t.Weekday())
	}
	return t, nil
}

// ValidateWeekStart is ParseWeekStart without the parsed value.
func ValidateWeekStart(s string) error {
	_, err := ParseWeekStart(s)
	return err
}

// ShiftWeeks moves a week start by n weeks (negative moves backwards).
func ShiftWeeks(weekStart string, n int) (string, error) {
	t, err := ParseWeekStart(weekStart)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, 7*n).Format(WeekStartLayout), nil
}

// WeekDates lists the seven calendar dates of the week, Monday first.
func WeekDates(weekStart string) ([]string, error) {
	t, err := ParseWeekStart(weekStart)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		dates = append(dates, t.AddDate(0, 0, i).Format(WeekStartLayout))
	}
	return dates, nil
}
