package locale

import "testing"

func TestResolve_Priority(t *testing.T) {
	tests := []struct {
		name                    string
		override, page, ambient string
		want                    string
		wantSource              Source
	}{
		{"override wins", "pl", "en-US", "de", "pl", SourceOverride},
		{"page over ambient", "", "pl-PL", "en-GB", "pl", SourcePage},
		{"ambient", "", "", "en-GB", "en", SourceAmbient},
		{"default", "", "", "", "en", SourceDefault},
		{"blank override ignored", "   ", "PL", "", "pl", SourcePage},
		{"unknown kept as key", "", "fr-CA", "", "fr", SourcePage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, src := Sources{Override: tt.override, Page: tt.page, Ambient: tt.ambient}.Resolve()
			if got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
			if src != tt.wantSource {
				t.Errorf("source = %q, want %q", src, tt.wantSource)
			}
		})
	}
}

func TestResolve_Shorthand(t *testing.T) {
	if got := Resolve("", "", "PL-pl"); got != "pl" {
		t.Errorf("Resolve = %q, want pl", got)
	}
}

func TestKey(t *testing.T) {
	cases := map[string]string{
		"en-US":      "en",
		"PL":         "pl",
		"-x":         "en",
		"zh-Hant-TW": "zh",
	}
	for in, want := range cases {
		if got := Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	cases := map[string]string{
		"pl_PL.UTF-8": "pl-PL",
		"de_DE@euro":  "de-DE",
		"C":           "",
		"POSIX":       "",
		"":            "",
		"en":          "en",
	}
	for in, want := range cases {
		if got := FromEnv(in); got != want {
			t.Errorf("FromEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
