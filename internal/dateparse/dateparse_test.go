package dateparse

import (
	"testing"
	"time"
)

func fixedParser(t *testing.T) (*Parser, time.Time) {
	t.Helper()
	now := time.Date(2024, time.June, 10, 15, 4, 5, 0, time.Local)
	return New(WithNow(func() time.Time { return now })), now
}

func TestParse_RelativeWords(t *testing.T) {
	p, now := fixedParser(t)
	today := FromTime(now)
	cases := map[string]int{
		"today": 0, "Today": 0, " TODAY ": 0, "dzisiaj": 0, "dziś": 0, "DZIŚ": 0,
		"tomorrow": 1, "jutro": 1, "Jutro": 1,
		"yesterday": -1, "wczoraj": -1,
	}
	for word, off := range cases {
		got, ok := p.Parse(word)
		if !ok {
			t.Errorf("Parse(%q) unparseable", word)
			continue
		}
		want := NewDate(today.Year, today.Month, today.Day+off)
		if got != want {
			t.Errorf("Parse(%q) = %v, want %v", word, got, want)
		}
	}
}

func TestParse_RelativeAcrossMonthBoundary(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 30, 0, 0, time.Local)
	p := New(WithNow(func() time.Time { return now }))
	got, _ := p.Parse("yesterday")
	if want := (Date{2024, 1, 29}); got != want {
		t.Errorf("yesterday = %v, want %v", got, want)
	}
}

func TestParse_Formats(t *testing.T) {
	p, _ := fixedParser(t)
	tests := []struct {
		in   string
		want Date
	}{
		{"2024-12-25", Date{2024, 11, 25}},
		{"2024-12-25T14:30:00Z", Date{2024, 11, 25}},
		{"2024-01-20 14:30", Date{2024, 0, 20}},
		{"25.12.2024", Date{2024, 11, 25}},
		{"12/25/2024", Date{2024, 11, 25}},
		{"25/12/2024", Date{2024, 11, 25}},
		{"1.5.24", Date{2024, 4, 1}},
		{"1/5/24", Date{2024, 0, 5}},
		{"1-5-2024", Date{2024, 0, 5}},
		{"12/25/2024 10:00 pm", Date{2024, 11, 25}},
		{"January 15, 2024", Date{2024, 0, 15}},
		{"Jan 5th, 2024", Date{2024, 0, 5}},
		{"Sept. 9 2021", Date{2021, 8, 9}},
		{"3rd March 2023", Date{2023, 2, 3}},
		{"5 Sept. 2024", Date{2024, 8, 5}},
		{"December 24", Date{2024, 11, 24}},
		{"Feb. 2nd", Date{2024, 1, 2}},
		{"5 marca 2024", Date{2024, 2, 5}},
		{"1 styczeń 2025", Date{2025, 0, 1}},
		{"3 paź. 2024", Date{2024, 9, 3}},
		{"1 maj 2024", Date{2024, 4, 1}},
		{"14 lutego", Date{2024, 1, 14}},
		{"30 WRZEŚNIA 2023", Date{2023, 8, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := p.Parse(tt.in)
			if !ok {
				t.Fatalf("Parse(%q) unparseable", tt.in)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_NonBreakingSpaces(t *testing.T) {
	p, _ := fixedParser(t)
	tests := []struct {
		in   string
		want Date
	}{
		{"January\u00a015, 2024", Date{2024, 0, 15}},
		{"Jan 5th,\u00a02024", Date{2024, 0, 5}},
		{"15\u00a0października 2024", Date{2024, 9, 15}},
		{"3\u00a0maja", Date{2024, 4, 3}},
		{"5\u202fmarca\u00a02024", Date{2024, 2, 5}},
	}
	for _, tt := range tests {
		got, ok := p.Parse(tt.in)
		if !ok {
			t.Errorf("Parse(%q) unparseable", tt.in)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse_Unparseable(t *testing.T) {
	p, _ := fixedParser(t)
	for _, s := range []string{"", "soon", "Janu 5, 2024", "next week", "2024"} {
		if got, ok := p.Parse(s); ok {
			t.Errorf("Parse(%q) = %v, want unparseable", s, got)
		}
	}
}

func TestParse_Overflow(t *testing.T) {
	p, _ := fixedParser(t)
	got, ok := p.Parse("13/13/2024")
	if !ok {
		t.Fatal("unparseable")
	}
	// Day 13 of month 13: normalized into January of the next year.
	if want := (Date{2025, 0, 13}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWeekdayName(t *testing.T) {
	d, ok := Parse("January 15, 2024")
	if !ok {
		t.Fatal("unparseable")
	}
	if d.WeekdayName() != "Monday" {
		t.Errorf("weekday = %q, want Monday", d.WeekdayName())
	}
	if got := (Date{2024, 11, 25}).WeekdayName(); got != "Wednesday" {
		t.Errorf("2024-12-25 weekday = %q, want Wednesday", got)
	}
}

func TestDate_String(t *testing.T) {
	if s := (Date{2024, 0, 5}).String(); s != "2024-01-05" {
		t.Errorf("String = %q", s)
	}
}

func TestRelativeOffset(t *testing.T) {
	if _, ok := RelativeOffset("todays"); ok {
		t.Error("todays should not be a relative word")
	}
	if off, ok := RelativeOffset("Wczoraj"); !ok || off != -1 {
		t.Errorf("Wczoraj = %d, %v", off, ok)
	}
}
