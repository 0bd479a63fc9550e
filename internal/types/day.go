// Package types implements special types for pocketbudget.
package types

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// dayPattern is the exact wire format for a Day.
var dayPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)

// Day is a calendar date without a time of day.
//
// It is always anchored at midnight UTC so that two Day values
// describing the same calendar date compare equal.
type Day time.Time

// NewDay returns a new Day.
func NewDay(year int, month time.Month, day int) Day {
	return Day(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the Day on which a time instant occurs, in UTC.
func DayOf(t time.Time) Day {
	year, month, day := t.In(time.UTC).Date()
	return NewDay(year, month, day)
}

// Today returns the current calendar date in UTC.
func Today() Day {
	return DayOf(time.Now())
}

// ParseDay parses a "YYYY-MM-DD" string and returns the Day it represents.
// Other formats, including full RFC3339 timestamps, are rejected.
func ParseDay(s string) (Day, error) {
	if !dayPattern.MatchString(s) {
		return Day{}, fmt.Errorf("date must be in YYYY-MM-DD format, got %q", s)
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}

	return DayOf(t), nil
}

// String returns the date formatted as YYYY-MM-DD.
func (d Day) String() string {
	return time.Time(d).Format("2006-01-02")
}

// MarshalJSON implements the json.Marshaler interface.
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// The day is expected as "YYYY-MM-DD"; a full timestamp is accepted
// as well, everything after the date is then ignored.
func (d *Day) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		return nil
	}

	pattern := "2006-01-02T15:04:05Z07:00"
	if dayPattern.MatchString(value) {
		pattern = "2006-01-02"
	}

	t, err := time.Parse(pattern, value)
	if err != nil {
		return err
	}

	*d = DayOf(t)
	return nil
}

// Scan reads the value from the database.
func (d *Day) Scan(value interface{}) (err error) {
	nullTime := &sql.NullTime{}
	err = nullTime.Scan(value)
	*d = DayOf(nullTime.Time)
	return err
}

// Value returns the value for the SQL driver to write to the database.
func (d Day) Value() (driver.Value, error) {
	year, month, day := time.Time(d).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// GormDataType defines the data type used by gorm for the type.
func (Day) GormDataType() string {
	return "date"
}

// IsZero reports if the day is the zero value.
func (d Day) IsZero() bool {
	return time.Time(d).IsZero()
}

// AddDate adds a specified amount of years, months and days.
//
// Like time.Time.AddDate, it normalizes overflowing results: adding one
// month to January 31 yields March 2 or 3 depending on the year.
func (d Day) AddDate(years, months, days int) Day {
	return Day(time.Time(d).AddDate(years, months, days))
}

// Before reports whether the day d is before e.
func (d Day) Before(e Day) bool {
	return time.Time(d).Before(time.Time(e))
}

// After reports whether the day d is after e.
func (d Day) After(e Day) bool {
	return time.Time(d).After(time.Time(e))
}

// Equal reports whether d and e represent the same calendar date.
func (d Day) Equal(e Day) bool {
	return time.Time(d).Equal(time.Time(e))
}

// Time returns the day as a time.Time at midnight UTC.
func (d Day) Time() time.Time {
	return time.Time(d)
}
