// Package dob parses dates of birth and classifies how close two of them are.
package dob

import (
	"strings"
	"time"
)

// layouts tried in order when parsing a raw DOB string. Sources disagree on
// format, so day-first is tried before month-first.
var layouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
}

// Date is a parsed date of birth. Valid is false when the source string could
// not be parsed; invalid dates never match anything.
type Date struct {
	Year  int
	Month time.Month
	Day   int
	Valid bool
}

// Relation describes how two dates of birth relate for screening purposes.
type Relation int

const (
	// Unrelated dates share no suspicious proximity.
	Unrelated Relation = iota
	// Exact dates are the same calendar day.
	Exact
	// Near dates differ by one of the single-digit slips people make when
	// shifting a date of birth: one day either way, one year with the same
	// month and day, or one month with the same year and day.
	Near
)

// Parse parses a raw DOB string, trying each known layout in turn. An empty
// or unparseable string returns an invalid Date rather than an error so bad
// rows can still flow through screening without matching.
func Parse(raw string) Date {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}
	}

	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Date{
				Year:  t.Year(),
				Month: t.Month(),
				Day:   t.Day(),
				Valid: true,
			}
		}
	}

	return Date{}
}

// Time returns the date at midnight UTC. Only meaningful when Valid.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Equal reports whether both dates are valid and name the same calendar day.
func (d Date) Equal(other Date) bool {
	if !d.Valid || !other.Valid {
		return false
	}
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// Compare classifies the relationship between two dates of birth. Either date
// being invalid yields Unrelated.
func Compare(a, b Date) Relation {
	if !a.Valid || !b.Valid {
		return Unrelated
	}

	if a.Equal(b) {
		return Exact
	}

	// One day apart, in either direction. Uses real calendar arithmetic so
	// month and year boundaries count.
	dayDiff := int(a.Time().Sub(b.Time()).Hours() / 24)
	if dayDiff == 1 || dayDiff == -1 {
		return Near
	}

	// Same month and day, one year apart.
	if a.Month == b.Month && a.Day == b.Day && absInt(a.Year-b.Year) == 1 {
		return Near
	}

	// Same year and day, one month apart.
	if a.Year == b.Year && a.Day == b.Day && absInt(int(a.Month)-int(b.Month)) == 1 {
		return Near
	}

	return Unrelated
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
