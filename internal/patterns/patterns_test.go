package patterns

import (
	"testing"
)

func TestEffective_IncludesCommon(t *testing.T) {
	for _, key := range append(Locales(), "fr", "", "xx") {
		eff := Effective(key)
		for i, g := range commonGrammars {
			if eff[i] != g {
				t.Errorf("Effective(%q)[%d] = %v, want common grammar %v", key, i, eff[i], g)
			}
		}
	}
}

func TestEffective_UnknownFallsBackToEnglish(t *testing.T) {
	eff := Effective("fr")
	if len(eff) != len(commonGrammars)+len(englishGrammars) {
		t.Fatalf("len = %d, want %d", len(eff), len(commonGrammars)+len(englishGrammars))
	}
	if eff[len(eff)-1].Locale != English {
		t.Errorf("last grammar locale = %q, want en", eff[len(eff)-1].Locale)
	}
}

func TestKnown(t *testing.T) {
	if !Known("pl") || !Known("en") {
		t.Error("pl and en should be known")
	}
	if Known("common") || Known("de") {
		t.Error("common and de should not be known locales")
	}
}

func TestCombine_Empty(t *testing.T) {
	if _, err := Combine(nil); err == nil {
		t.Fatal("expected error for empty grammar list")
	}
}

func mustFor(t *testing.T, key string) *Pattern {
	t.Helper()
	p, err := For(key)
	if err != nil {
		t.Fatalf("For(%q): %v", key, err)
	}
	return p
}

func TestFindAll_Scenario(t *testing.T) {
	p := mustFor(t, "en")
	toks, err := p.FindAll("Event on January 15, 2024 ends on 2024-01-20")
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 2 {
		t.Fatalf("matches = %d (%v), want 2", len(toks), toks)
	}
	if toks[0].Text != "January 15, 2024" || toks[0].Locale != English {
		t.Errorf("first = %+v", toks[0])
	}
	if toks[1].Text != "2024-01-20" || toks[1].Locale != Common || toks[1].Grammar != "iso-date" {
		t.Errorf("second = %+v", toks[1])
	}
	if toks[0].Offset != 9 {
		t.Errorf("offset = %d, want 9", toks[0].Offset)
	}
}

func TestISOTimestampGrammar(t *testing.T) {
	g, err := Combine([]Grammar{commonGrammars[0]})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{
		"2024-12-25T14:30:00Z",
		"2024-12-25T14:30:00.123Z",
		"2024-12-25T14:30:00+01:00",
		"2024-12-25T14:30:00",
	} {
		ok, err := g.Match(s)
		if err != nil || !ok {
			t.Errorf("timestamp grammar did not match %q (err=%v)", s, err)
		}
	}

	toks, _ := mustFor(t, "en").FindAll("at 2024-12-25T14:30:00Z sharp")
	if len(toks) != 1 || toks[0].Text != "2024-12-25T14:30:00Z" || toks[0].Grammar != "iso-timestamp" {
		t.Errorf("combined match = %+v", toks)
	}
}

func TestFindAll_English(t *testing.T) {
	p := mustFor(t, "en")
	cases := map[string]string{
		"due Jan 5th, 2024!":     "Jan 5th, 2024",
		"on 3rd March 2023.":     "3rd March 2023",
		"see you TOMORROW":       "TOMORROW",
		"Sept. 9 2021":           "Sept. 9 2021",
		"born December 24":       "December 24",
		"call on Feb. 2nd":       "Feb. 2nd",
		"25.12.2024 at noon":     "25.12.2024",
		"meet 2024-01-20 14:30.": "2024-01-20 14:30",
		"12/25/2024 10:00 pm ok": "12/25/2024 10:00 pm",
	}
	for in, want := range cases {
		toks, err := p.FindAll(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if len(toks) != 1 || toks[0].Text != want {
			t.Errorf("FindAll(%q) = %+v, want single %q", in, toks, want)
		}
	}
}

func TestFindAll_NoMatch(t *testing.T) {
	p := mustFor(t, "en")
	for _, s := range []string{"version 1.2", "todays special", "nothing here", "2024"} {
		toks, err := p.FindAll(s)
		if err != nil {
			t.Fatal(err)
		}
		if len(toks) != 0 {
			t.Errorf("FindAll(%q) = %+v, want none", s, toks)
		}
	}
}

func TestFindAll_Polish(t *testing.T) {
	p := mustFor(t, "pl")
	cases := map[string]string{
		"spotkanie 5 marca 2024 r.": "5 marca 2024",
		"od 1 styczeń 2025":         "1 styczeń 2025",
		"do 3 paź. 2024":            "3 paź. 2024",
		"Dziś pada":                 "Dziś",
		"wracam jutro.":             "jutro",
		"urodziny 14 lutego":        "14 lutego",
	}
	for in, want := range cases {
		toks, err := p.FindAll(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if len(toks) != 1 || toks[0].Text != want {
			t.Errorf("FindAll(%q) = %+v, want single %q", in, toks, want)
		}
	}
}

func TestPolishRelative_NotInsideWords(t *testing.T) {
	p := mustFor(t, "pl")
	for _, s := range []string{"dzisiejszy", "jutrzejszy dzień", "przedwczorajszy"} {
		toks, err := p.FindAll(s)
		if err != nil {
			t.Fatal(err)
		}
		if len(toks) != 0 {
			t.Errorf("FindAll(%q) = %+v, want none", s, toks)
		}
	}
}

func TestCrossLocaleRelativeWordsNotMatched(t *testing.T) {
	toks, err := mustFor(t, "en").FindAll("spotkanie dziś")
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 0 {
		t.Errorf("english pattern matched polish relative word: %+v", toks)
	}
}

func TestFor_Cached(t *testing.T) {
	a := mustFor(t, "de")
	b := mustFor(t, "en")
	if a != b {
		t.Error("unknown locale should share the english pattern")
	}
}

func TestReplaceFunc(t *testing.T) {
	p := mustFor(t, "en")
	got, err := p.ReplaceFunc("Due 2024-12-25, paid yesterday.", func(tok Token) string {
		return "[" + tok.Text + "]"
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := "Due [2024-12-25], paid [yesterday]."; got != want {
		t.Errorf("ReplaceFunc = %q, want %q", got, want)
	}
}
