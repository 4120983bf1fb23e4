// Package dateparse converts matched date-like text into a calendar date.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
)

// Date is a calendar date without a time zone. Month is 0-based.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate builds a Date, normalizing overflowing components the way a
// calendar does (month 12 of 2024 is January 2025).
func NewDate(year, month, day int) Date {
	t := time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: int(t.Month()) - 1, Day: t.Day()}
}

// FromTime returns the calendar date of t in t's location.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()) - 1, Day: t.Day()}
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month+1), d.Day, 0, 0, 0, 0, loc)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// WeekdayName returns one of the seven English weekday names.
func (d Date) WeekdayName() string {
	return d.Weekday().String()
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month+1, d.Day)
}

// Option configures a Parser.
type Option func(*Parser)

// WithNow sets the clock used for relative words and year-less dates.
func WithNow(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// Parser resolves date text. The zero value is not usable; call New.
type Parser struct {
	now func() time.Time
}

// New creates a Parser using the local wall clock unless overridden.
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse resolves text with the package default parser.
func Parse(text string) (Date, bool) {
	return defaultParser.Parse(text)
}

// Sub-grammars run on the same engine as the detector so both agree on
// whitespace (NBSP included) and word boundaries.
var (
	isoRe     = compile(`^([0-9]{4})-([0-9]{2})-([0-9]{2})`)
	numericRe = compile(`^([0-9]{1,2})([./-])([0-9]{1,2})[./-]([0-9]{2,4})`)
)

func compile(expr string) *regexp2.Regexp {
	return regexp2.MustCompile(expr, regexp2.IgnoreCase)
}

// submatch returns the groups of the first match of re in s, or nil.
func submatch(re *regexp2.Regexp, s string) []string {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return nil
	}
	groups := m.Groups()
	out := make([]string, len(groups))
	for i := range groups {
		out[i] = groups[i].String()
	}
	return out
}

// relativeOffsets maps relative day words to their offset from today.
var relativeOffsets = map[string]int{
	"today":     0,
	"dzisiaj":   0,
	"dziś":      0,
	"tomorrow":  1,
	"jutro":     1,
	"yesterday": -1,
	"wczoraj":   -1,
}

// RelativeOffset returns the day offset of a relative word, matched after
// trimming and case folding.
func RelativeOffset(word string) (int, bool) {
	off, ok := relativeOffsets[cases.Fold().String(strings.TrimSpace(word))]
	return off, ok
}

// Parse resolves text to a date. ok is false when no rule applies; the
// caller still highlights such text, only without a weekday.
func (p *Parser) Parse(text string) (Date, bool) {
	now := p.now()
	today := FromTime(now)

	if off, ok := RelativeOffset(text); ok {
		return NewDate(today.Year, today.Month, today.Day+off), true
	}

	trimmed := strings.TrimSpace(text)

	if m := submatch(isoRe, trimmed); m != nil {
		return NewDate(atoi(m[1]), atoi(m[2])-1, atoi(m[3])), true
	}

	if m := submatch(numericRe, trimmed); m != nil {
		return numericDate(atoi(m[1]), atoi(m[3]), atoi(m[4]), m[2]), true
	}

	for _, mp := range englishMonths {
		if m := submatch(mp.monthDayYear, trimmed); m != nil {
			return NewDate(atoi(m[2]), mp.month, atoi(m[1])), true
		}
		if m := submatch(mp.dayMonthYear, trimmed); m != nil {
			return NewDate(atoi(m[2]), mp.month, atoi(m[1])), true
		}
		if m := submatch(mp.monthDay, trimmed); m != nil {
			return NewDate(today.Year, mp.month, atoi(m[1])), true
		}
	}

	for _, mp := range polishMonths {
		if m := submatch(mp.dayMonthYear, trimmed); m != nil {
			return NewDate(atoi(m[2]), mp.month, atoi(m[1])), true
		}
		if m := submatch(mp.dayMonth, trimmed); m != nil {
			return NewDate(today.Year, mp.month, atoi(m[1])), true
		}
	}

	return Date{}, false
}

// numericDate disambiguates D/D/Y forms: a first component above 12 is the
// day, a dot separator means day first, anything else is month first.
func numericDate(first, second, year int, sep string) Date {
	if year < 100 {
		year += 2000
	}
	if first > 12 || sep == "." {
		return NewDate(year, second-1, first)
	}
	return NewDate(year, first-1, second)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
