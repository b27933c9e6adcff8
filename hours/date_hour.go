// Package hours derives the calendar keys shared by price lookups and usage
// buckets. A key is "MM/DD/YYYY HH:00" for an hour and "MM/DD/YYYY" for a day.
package hours

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "01/02/2006"
	isoLayout  = "2006-01-02"
)

// DateHour is a calendar key. Hour is position-1 of a point and is not capped
// at 23, sub hourly resolutions produce larger values.
type DateHour struct {
	Date string
	Hour int
}

func (dh DateHour) String() string {
	return fmt.Sprintf("%s %02d:00", dh.Date, dh.Hour)
}

// Time is the UTC instant the key refers to.
func (dh DateHour) Time() (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, dh.Date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", dh.Date, err)
	}
	return d.Add(time.Duration(dh.Hour) * time.Hour), nil
}

// Compare orders keys chronologically, unlike a plain string comparison of
// the MM/DD/YYYY text. Keys that fail to parse sort first.
func (dh DateHour) Compare(other DateHour) int {
	a, errA := dh.Time()
	b, errB := other.Time()
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(dh.String(), other.String())
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return a.Compare(b)
}

func (dh DateHour) IsZero() bool {
	return dh.Date == "" && dh.Hour == 0
}

// DateKey is the date part of the key for a period ending at end. The end
// bound is exclusive, so a period ending at midnight belongs to the day before.
func DateKey(end time.Time) string {
	return end.UTC().Add(-time.Nanosecond).Format(dateLayout)
}

// FromPosition builds the key of the 1-based point position within the
// period ending at end.
func FromPosition(end time.Time, position string) (DateHour, error) {
	p, err := strconv.Atoi(strings.TrimSpace(position))
	if err != nil {
		return DateHour{}, fmt.Errorf("invalid position %q: %w", position, err)
	}
	if p < 1 {
		return DateHour{}, fmt.Errorf("invalid position %q: positions start at 1", position)
	}
	return DateHour{Date: DateKey(end), Hour: p - 1}, nil
}

func FromTime(t time.Time) DateHour {
	if t.IsZero() {
		return DateHour{}
	}
	t = t.UTC()
	return DateHour{
		Date: t.Format(dateLayout),
		Hour: t.Hour(),
	}
}

// ParseKey accepts an hourly key "MM/DD/YYYY HH:00" or a daily key "MM/DD/YYYY".
func ParseKey(key string) (DateHour, error) {
	date, hour, found := strings.Cut(key, " ")
	if _, err := time.Parse(dateLayout, date); err != nil {
		return DateHour{}, fmt.Errorf("invalid key %q: %w", key, err)
	}
	if !found {
		return DateHour{Date: date}, nil
	}

	hh, ok := strings.CutSuffix(hour, ":00")
	if !ok {
		return DateHour{}, fmt.Errorf("invalid key %q: hour must end in :00", key)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 {
		return DateHour{}, fmt.Errorf("invalid key %q: bad hour", key)
	}
	return DateHour{Date: date, Hour: h}, nil
}

// FromIsoDate parses a YYYY-MM-DD date as UTC midnight.
func FromIsoDate(str string) (time.Time, error) {
	t, err := time.ParseInLocation(isoLayout, str, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", str, err)
	}
	return t, nil
}

// IsoDate formats t as the YYYY-MM-DD date used in upstream request paths.
func IsoDate(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
