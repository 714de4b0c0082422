package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	c := New(fixedNow)

	tests := []struct {
		name  string
		input string
		year  int
		month time.Month
		ok    bool
	}{
		{name: "present", input: "Present", year: 2024, month: time.January, ok: true},
		{name: "current with spaces", input: "  current ", year: 2024, month: time.January, ok: true},
		{name: "bare year", input: "2018", year: 2018, month: time.January, ok: true},
		{name: "month name", input: "Mar 2019", year: 2019, month: time.March, ok: true},
		{name: "full month name", input: "September 2015", year: 2015, month: time.September, ok: true},
		{name: "abbreviation with dot", input: "Sept. 2016", year: 2016, month: time.September, ok: true},
		{name: "french month", input: "févr. 2021", year: 2021, month: time.February, ok: true},
		{name: "numeric month", input: "7 2020", year: 2020, month: time.July, ok: true},
		{name: "month year inside text", input: "since Jun 2017", year: 2017, month: time.June, ok: true},
		{name: "iso date", input: "2020-05-17", year: 2020, month: time.May, ok: true},
		{name: "empty", input: "", ok: false},
		{name: "garbage", input: "sometime", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := c.ParseDate(tt.input)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			require.Equal(t, tt.year, got.Year())
			require.Equal(t, tt.month, got.Month())
		})
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()

	c := New(fixedNow)

	tests := []struct {
		name       string
		start, end string
		expect     float64
	}{
		{name: "whole years", start: "Jan 2018", end: "Jan 2024", expect: 6.0},
		{name: "present end", start: "Jan 2018", end: "Present", expect: 6.0},
		{name: "missing end means now", start: "Jan 2020", end: "", expect: 4.0},
		{name: "unparsable end means now", start: "Jan 2022", end: "whenever", expect: 2.0},
		{name: "unparsable start", start: "whenever", end: "Jan 2020", expect: 0},
		{name: "empty start", start: "", end: "Jan 2020", expect: 0},
		{name: "bare years", start: "2015", end: "2017", expect: 2.0},
		{name: "half year", start: "Jan 2020", end: "Jul 2020", expect: 0.5},
		{name: "three months rounds to even", start: "Jan 2020", end: "Apr 2020", expect: 0},
		{name: "nine months rounds to even", start: "Jan 2020", end: "Oct 2020", expect: 1.0},
		{name: "fifteen months rounds to even", start: "Jan 2020", end: "Apr 2021", expect: 1.0},
		{name: "twenty one months rounds to even", start: "Jan 2020", end: "Oct 2021", expect: 2.0},
		{name: "end before start clamps", start: "Jan 2022", end: "Jan 2020", expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expect, c.Between(tt.start, tt.end))
		})
	}
}

func TestYearsProperty(t *testing.T) {
	t.Parallel()

	c := New(fixedNow)
	now := fixedNow()

	for year := 2000; year <= 2023; year++ {
		for month := time.January; month <= time.December; month++ {
			start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			got := c.Between(start.Format("Jan 2006"), "Present")

			months := (now.Year()-year)*12 + int(now.Month()) - int(month)
			require.InDelta(t, float64(months)/12, got, 0.25, "start %s", start.Format("Jan 2006"))
			require.Zero(t, got*2-float64(int(got*2)), "not a half year multiple: %v", got)
		}
	}
}
