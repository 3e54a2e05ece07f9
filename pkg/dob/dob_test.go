package dob

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		year  int
		month time.Month
		day   int
		valid bool
	}{
		{
			name:  "iso date",
			input: "1990-05-31",
			year:  1990, month: time.May, day: 31, valid: true,
		},
		{
			name:  "iso datetime",
			input: "1990-05-31 00:00:00",
			year:  1990, month: time.May, day: 31, valid: true,
		},
		{
			name:  "rfc3339",
			input: "1990-05-31T00:00:00Z",
			year:  1990, month: time.May, day: 31, valid: true,
		},
		{
			name:  "day first slash",
			input: "31/05/1990",
			year:  1990, month: time.May, day: 31, valid: true,
		},
		{
			name:  "surrounding whitespace",
			input: "  1990-05-31  ",
			year:  1990, month: time.May, day: 31, valid: true,
		},
		{
			name:  "empty",
			input: "",
			valid: false,
		},
		{
			name:  "garbage",
			input: "not a date",
			valid: false,
		},
		{
			name:  "impossible day",
			input: "1990-02-31",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Parse(tt.input)
			require.Equal(t, tt.valid, d.Valid)
			if tt.valid {
				assert.Equal(t, tt.year, d.Year)
				assert.Equal(t, tt.month, d.Month)
				assert.Equal(t, tt.day, d.Day)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected Relation
	}{
		{
			name: "same day",
			a:    "1990-05-15", b: "1990-05-15",
			expected: Exact,
		},
		{
			name: "one day apart",
			a:    "1990-05-15", b: "1990-05-16",
			expected: Near,
		},
		{
			name: "one day apart across month boundary",
			a:    "1990-05-31", b: "1990-06-01",
			expected: Near,
		},
		{
			name: "one day apart across year boundary",
			a:    "1989-12-31", b: "1990-01-01",
			expected: Near,
		},
		{
			name: "same month and day one year apart",
			a:    "1989-07-04", b: "1990-07-04",
			expected: Near,
		},
		{
			name: "same year and day one month apart",
			a:    "1990-03-15", b: "1990-04-15",
			expected: Near,
		},
		{
			name: "same day two months apart",
			a:    "1990-03-15", b: "1990-05-15",
			expected: Unrelated,
		},
		{
			name: "same month and day two years apart",
			a:    "1988-07-04", b: "1990-07-04",
			expected: Unrelated,
		},
		{
			name: "two days apart",
			a:    "1990-05-15", b: "1990-05-17",
			expected: Unrelated,
		},
		{
			name: "unrelated dates",
			a:    "1975-01-01", b: "1990-05-15",
			expected: Unrelated,
		},
		{
			name: "invalid left side",
			a:    "not a date", b: "1990-05-15",
			expected: Unrelated,
		},
		{
			name: "both invalid",
			a:    "", b: "",
			expected: Unrelated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(Parse(tt.a), Parse(tt.b))
			assert.Equal(t, tt.expected, got)

			// Proximity is symmetric
			assert.Equal(t, tt.expected, Compare(Parse(tt.b), Parse(tt.a)))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Parse("1990-05-15").Equal(Parse("15/05/1990")))
	assert.False(t, Parse("1990-05-15").Equal(Date{}))
	assert.False(t, Date{}.Equal(Date{}))
}
