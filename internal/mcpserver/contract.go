package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/whatday/internal/patterns"
)

const formatsIntro = `# whatday Date Formats

whatday recognizes date-like text with a fixed grammar library. The
"common" grammars apply to every page; one locale set is added on top,
chosen by the first of: explicit override, page language, ambient locale,
falling back to "en". Unknown locales use "en".

Every recognized span is highlighted. When the span resolves to a calendar
date, its English weekday name is attached (` + "`🗓 Monday`" + `). Spans that do not
resolve, such as February 30, are highlighted without a weekday.

Relative words (today, yesterday, tomorrow, dzisiaj, wczoraj, jutro) resolve
against the current day. Year-less dates resolve in the current year.
`

const formatsExamples = `
## Examples

| Text | Locale | Date |
|---|---|---|
| ` + "`2024-01-15`" + ` | common | 2024-01-15 (Monday) |
| ` + "`15.01.2024 10:30`" + ` | common | 2024-01-15 (Monday) |
| ` + "`January 15, 2024`" + ` | en | 2024-01-15 (Monday) |
| ` + "`15th Jan 2024`" + ` | en | 2024-01-15 (Monday) |
| ` + "`15 stycznia 2024`" + ` | pl | 2024-01-15 (Monday) |
`

// FormatsContract describes, as Markdown, every grammar the detector
// applies, grouped by locale.
func FormatsContract() string {
	var b strings.Builder
	b.WriteString(formatsIntro)
	keys := append([]string{patterns.Common}, patterns.Locales()...)
	for _, key := range keys {
		fmt.Fprintf(&b, "\n## %s\n\n", key)
		for _, g := range patterns.ForLocale(key) {
			fmt.Fprintf(&b, "- `%s`\n", g.Name)
		}
	}
	b.WriteString(formatsExamples)
	return b.String()
}
