package dateparse

import (
	"github.com/dlclark/regexp2"
)

type monthName struct {
	name  string
	month int
}

// Declared order matters: full names are tried before abbreviations.
var englishMonthNames = []monthName{
	{"january", 0}, {"february", 1}, {"march", 2}, {"april", 3},
	{"may", 4}, {"june", 5}, {"july", 6}, {"august", 7},
	{"september", 8}, {"october", 9}, {"november", 10}, {"december", 11},
	{"jan", 0}, {"feb", 1}, {"mar", 2}, {"apr", 3},
	{"jun", 5}, {"jul", 6}, {"aug", 7}, {"sep", 8}, {"sept", 8},
	{"oct", 9}, {"nov", 10}, {"dec", 11},
}

// Genitive, then nominative, then abbreviated forms.
var polishMonthNames = []monthName{
	{"stycznia", 0}, {"lutego", 1}, {"marca", 2}, {"kwietnia", 3},
	{"maja", 4}, {"czerwca", 5}, {"lipca", 6}, {"sierpnia", 7},
	{"września", 8}, {"października", 9}, {"listopada", 10}, {"grudnia", 11},
	{"styczeń", 0}, {"luty", 1}, {"marzec", 2}, {"kwiecień", 3},
	{"maj", 4}, {"czerwiec", 5}, {"lipiec", 6}, {"sierpień", 7},
	{"wrzesień", 8}, {"październik", 9}, {"listopad", 10}, {"grudzień", 11},
	{"sty", 0}, {"lut", 1}, {"mar", 2}, {"kwi", 3},
	{"cze", 5}, {"lip", 6}, {"sie", 7}, {"wrz", 8},
	{"paź", 9}, {"lis", 10}, {"gru", 11},
}

type englishMonth struct {
	month        int
	monthDayYear *regexp2.Regexp // "January 15, 2024"
	dayMonthYear *regexp2.Regexp // "15 January 2024"
	monthDay     *regexp2.Regexp // "January 15"
}

type polishMonth struct {
	month        int
	dayMonthYear *regexp2.Regexp // "15 stycznia 2024"
	dayMonth     *regexp2.Regexp // "15 stycznia"
}

const (
	ord      = `(?:st|nd|rd|th)?`
	notDigit = `(?:[^0-9]|$)`
	notWord  = `(?:[^\p{L}\p{N}_]|$)`
)

var (
	englishMonths = buildEnglish()
	polishMonths  = buildPolish()
)

func buildEnglish() []englishMonth {
	out := make([]englishMonth, 0, len(englishMonthNames))
	for _, mn := range englishMonthNames {
		name := regexp2.Escape(mn.name) + `\.?`
		out = append(out, englishMonth{
			month:        mn.month,
			monthDayYear: compile(`\b` + name + `\s+([0-9]{1,2})` + ord + `,?\s+([0-9]{4})`),
			dayMonthYear: compile(`([0-9]{1,2})` + ord + `\s+` + name + `\s+([0-9]{4})`),
			monthDay:     compile(`\b` + name + `\s+([0-9]{1,2})` + ord + notDigit),
		})
	}
	return out
}

func buildPolish() []polishMonth {
	out := make([]polishMonth, 0, len(polishMonthNames))
	for _, mn := range polishMonthNames {
		name := regexp2.Escape(mn.name)
		out = append(out, polishMonth{
			month:        mn.month,
			dayMonthYear: compile(`([0-9]{1,2})\s+` + name + `\.?\s+([0-9]{4})`),
			dayMonth:     compile(`([0-9]{1,2})\s+` + name + notWord),
		})
	}
	return out
}
