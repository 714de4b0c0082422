package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	monthYear = regexp.MustCompile(`([\p{L}\d]+)\.?\s+(\d{4})`)
)

var presentWords = map[string]struct{}{
	"present": {},
	"current": {},
	"now":     {},
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January, "janv": time.January, "janvier": time.January,
	"feb": time.February, "february": time.February, "févr": time.February, "fevr": time.February, "février": time.February, "fevrier": time.February,
	"mar": time.March, "march": time.March, "mars": time.March,
	"apr": time.April, "april": time.April, "avr": time.April, "avril": time.April,
	"may": time.May, "mai": time.May,
	"jun": time.June, "june": time.June, "juin": time.June,
	"jul": time.July, "july": time.July, "juil": time.July, "juillet": time.July,
	"aug": time.August, "august": time.August, "août": time.August, "aout": time.August,
	"sep": time.September, "sept": time.September, "september": time.September, "septembre": time.September,
	"oct": time.October, "october": time.October, "octobre": time.October,
	"nov": time.November, "november": time.November, "novembre": time.November,
	"dec": time.December, "december": time.December, "déc": time.December, "décembre": time.December, "decembre": time.December,
}

// Calculator turns free-form tenure dates into year durations.
type Calculator struct {
	Clock func() time.Time
}

func New(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{Clock: now}
}

// ParseDate understands "present", bare years, "<month> <year>" and
// falls back to general date parsing.
func (c *Calculator) ParseDate(text string) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, false
	}

	if _, ok := presentWords[s]; ok {
		return c.Now(), true
	}

	if yearOnly.MatchString(s) {
		year, _ := strconv.Atoi(s)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	for _, m := range monthYear.FindAllStringSubmatch(s, -1) {
		month, ok := parseMonth(m[1])
		if !ok {
			continue
		}
		year, _ := strconv.Atoi(m[2])
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
	}

	t, err := dateparse.ParseAny(strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Between returns the span from start to end in years rounded to the nearest
// half year. An unparsable start yields 0, an unparsable or empty end means now.
func (c *Calculator) Between(start, end string) float64 {
	s, ok := c.ParseDate(start)
	if !ok {
		return 0
	}

	e, ok := c.ParseDate(end)
	if !ok {
		e = c.Now()
	}

	return Years(s, e)
}

// Years counts whole calendar months between s and e and rounds to 0.5 years.
// Ties go to the even half step. Negative spans are zero.
func Years(s, e time.Time) float64 {
	m := (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month())
	if m <= 0 {
		return 0
	}
	return math.RoundToEven(float64(m)/12*2) / 2
}

// Now returns the calculator's notion of the current time.
func (c *Calculator) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func parseMonth(word string) (time.Month, bool) {
	if n, err := strconv.Atoi(word); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	m, ok := months[word]
	return m, ok
}
