package analyzer

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb", "a\nb"},
		{"nested crlf", "a\r\r\nb", "a\nb"},
		{"tabs", "a\tb", "a b"},
		{"space runs", "a    b", "a b"},
		{"tabs then spaces", " \t \t x", "x"},
		{"newline runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"blank line kept", "a\n\nb", "a\n\nb"},
		{"trim", "  \n hi there \n\n ", "hi there"},
		{"empty", "", ""},
		{"whitespace only", " \t\r\n ", ""},
		{"spaces around newlines kept single", "a  \n\n\n  b", "a \n\n b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func FuzzNormalizeIdempotent(f *testing.F) {
	seeds := []string{
		"",
		"a\r\r\nb",
		"\t\t  x  \n\n\n\ny",
		"Responsibilities:\r\n\r\n\r\n- Own things\t\tand  more",
		"    leading nbsp",
		"We need a rockstar who wears many hats. Salary, $90k-$110k DOE.",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	})
}
