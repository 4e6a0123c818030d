package sieveutil

import (
	"testing"
)

func TestDotStuff(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no dots", "a\nb\n", "a\nb\n"},
		{"leading dot", ".\n", "..\n"},
		{"dot line in middle", "a\n.hidden\nb\n", "a\n..hidden\nb\n"},
		{"dot not at line start", "a.\nb.c\n", "a.\nb.c\n"},
		{"first char dot", ".start", "..start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DotStuff(tt.in); got != tt.want {
				t.Errorf("DotStuff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDotUnstuff(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no dots", "a\nb\n", "a\nb\n"},
		{"stuffed", "..\n", ".\n"},
		{"stuffed in middle", "a\n..hidden\nb\n", "a\n.hidden\nb\n"},
		{"single dot stays", ".a\n", ".a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DotUnstuff(tt.in); got != tt.want {
				t.Errorf("DotUnstuff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDotStuffRoundTrip(t *testing.T) {
	inputs := []string{"", "a\n", ".\n", "..\n", "a\n.b\n..c\nd.", ".only dots.\n.\n"}
	for _, in := range inputs {
		if got := DotUnstuff(DotStuff(in)); got != in {
			t.Errorf("DotUnstuff(DotStuff(%q)) = %q", in, got)
		}
	}
}

func TestCrLfToLf(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lf only", "a\nb", "a\nb"},
		{"crlf", "a\r\nb\r\n", "a\nb\n"},
		{"lone cr", "a\rb", "a\nb"},
		{"trailing cr", "a\r", "a\n"},
		{"mixed", "a\r\nb\rc\n", "a\nb\nc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CrLfToLf(tt.in); got != tt.want {
				t.Errorf("CrLfToLf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "abc", `"abc"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"multiline", "a\nb\n", "text:\na\nb\n.\n"},
		{"multiline with dot", ".\n", "text:\n..\n.\n"},
		{"newline not at end", "a\nb", "\"a\nb\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteString(tt.in); got != tt.want {
				t.Errorf("QuoteString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
