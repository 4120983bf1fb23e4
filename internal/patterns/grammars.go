package patterns

// Locale keys of the built-in grammar sets.
const (
	Common  = "common"
	English = "en"
	Polish  = "pl"
)

const (
	enMonths      = `January|February|March|April|May|June|July|August|September|October|November|December`
	enShortMonths = `Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec`
	ordinal       = `(?:st|nd|rd|th)?`

	plGenitive   = `stycznia|lutego|marca|kwietnia|maja|czerwca|lipca|sierpnia|września|października|listopada|grudnia`
	plNominative = `styczeń|luty|marzec|kwiecień|maj|czerwiec|lipiec|sierpień|wrzesień|październik|listopad|grudzień`
	plShort      = `sty|lut|mar|kwi|maj|cze|lip|sie|wrz|paź|lis|gru`
	plLetters    = `[a-ząćęłńóśźż]`

	clock = `[0-9]{1,2}:[0-9]{2}(?::[0-9]{2})?(?:\s*(?:am|pm))?`
)

// Timestamps come before bare dates so the longest form wins in the alternation.
var commonGrammars = []Grammar{
	{Locale: Common, Name: "iso-timestamp", Source: `\b[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(?:\.[0-9]{1,3})?(?:Z|[+-][0-9]{2}:[0-9]{2})?\b`},
	{Locale: Common, Name: "iso-datetime", Source: `\b[0-9]{4}-[0-9]{2}-[0-9]{2}\s+` + clock + `\b`},
	{Locale: Common, Name: "numeric-datetime", Source: `\b[0-9]{1,2}[-./][0-9]{1,2}[-./][0-9]{2,4}\s+` + clock + `\b`},
	{Locale: Common, Name: "iso-date", Source: `\b[0-9]{4}-[0-9]{2}-[0-9]{2}\b`},
	{Locale: Common, Name: "numeric-date", Source: `\b[0-9]{1,2}[-./][0-9]{1,2}[-./][0-9]{2,4}\b`},
}

var englishGrammars = []Grammar{
	{Locale: English, Name: "month-day-year", Source: `\b(?:` + enMonths + `)\s+[0-9]{1,2}` + ordinal + `,?\s+[0-9]{4}\b`},
	{Locale: English, Name: "short-month-day-year", Source: `\b(?:` + enShortMonths + `)[a-z]*\.?\s+[0-9]{1,2}` + ordinal + `,?\s+[0-9]{4}\b`},
	{Locale: English, Name: "day-month-year", Source: `\b[0-9]{1,2}` + ordinal + `\s+(?:` + enMonths + `)\s+[0-9]{4}\b`},
	{Locale: English, Name: "day-short-month-year", Source: `\b[0-9]{1,2}` + ordinal + `\s+(?:` + enShortMonths + `)[a-z]*\.?\s+[0-9]{4}\b`},
	{Locale: English, Name: "relative", Source: `\b(?:today|yesterday|tomorrow)\b`},
	{Locale: English, Name: "month-day", Source: `\b(?:` + enMonths + `)\s+[0-9]{1,2}` + ordinal + `\b`},
	{Locale: English, Name: "short-month-dot-day", Source: `\b(?:` + enShortMonths + `)\.\s+[0-9]{1,2}` + ordinal + `\b`},
}

// Polish relative words are guarded with lookaround over Polish letters:
// \b alone would let "dziś" match inside longer inflected words.
var polishGrammars = []Grammar{
	{Locale: Polish, Name: "numeric-dot", Source: `\b[0-9]{1,2}\.[0-9]{1,2}\.[0-9]{4}\b`},
	{Locale: Polish, Name: "day-genitive-year", Source: `\b[0-9]{1,2}\s+(?:` + plGenitive + `)\s+[0-9]{4}\b`},
	{Locale: Polish, Name: "day-nominative-year", Source: `\b[0-9]{1,2}\s+(?:` + plNominative + `)\s+[0-9]{4}\b`},
	{Locale: Polish, Name: "day-short-year", Source: `\b[0-9]{1,2}\s+(?:` + plShort + `)\.?\s+[0-9]{4}\b`},
	{Locale: Polish, Name: "relative", Source: `(?<!` + plLetters + `)(?:dzisiaj|dziś|wczoraj|jutro)(?!` + plLetters + `)`},
	{Locale: Polish, Name: "day-genitive", Source: `\b[0-9]{1,2}\s+(?:` + plGenitive + `)\b`},
}

var library = map[string][]Grammar{
	Common:  commonGrammars,
	English: englishGrammars,
	Polish:  polishGrammars,
}
