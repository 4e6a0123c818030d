package sieve

import (
	"testing"
)

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		value   string
		pattern string
		want    bool
	}{
		{"frobnitzm", "frobnitzm", true},
		{"frobnitzm", "frob*", true},
		{"frobnitzm", "*nitzm", true},
		{"frobnitzm", "frob?itzm", true},
		{"frobnitzm", "*", true},
		{"", "*", true},
		{"", "?", false},
		{"frobnitzm", "frob", false},
		{"abcabc", "*abc", true},
		{"abcabd", "*abc", false},
		{"a.b.c", "a*c", true},
		{"mail.example.com", "*.example.*", true},
		{"x", "**", true},
		{"axbxc", "a*b*c", true},
		{"ac", "a*b*c", false},
	}
	for _, tt := range tests {
		if got := matchWildcard(tt.value, tt.pattern); got != tt.want {
			t.Errorf("matchWildcard(%q, %q) = %v, want %v", tt.value, tt.pattern, got, tt.want)
		}
	}
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		name    string
		m       matcher
		values  []string
		keys    []string
		want    bool
	}{
		{"is casemap", matcher{comparator: comparatorASCIICasemap, matchType: matchTypeIs}, []string{"Hello"}, []string{"hello"}, true},
		{"is octet", matcher{comparator: comparatorOctet, matchType: matchTypeIs}, []string{"Hello"}, []string{"hello"}, false},
		{"contains", matcher{comparator: comparatorASCIICasemap, matchType: matchTypeContains}, []string{"Weekend SALE!!"}, []string{"sale"}, true},
		{"contains octet", matcher{comparator: comparatorOctet, matchType: matchTypeContains}, []string{"Weekend SALE!!"}, []string{"sale"}, false},
		{"matches", matcher{comparator: comparatorASCIICasemap, matchType: matchTypeMatches}, []string{"b-17"}, []string{"b-*"}, true},
		{"empty keys", matcher{comparator: comparatorASCIICasemap, matchType: matchTypeIs}, []string{"x"}, nil, false},
		{"empty values", matcher{comparator: comparatorASCIICasemap, matchType: matchTypeIs}, nil, []string{"x"}, false},
		{"value gt numeric", matcher{comparator: comparatorASCIINumeric, matchType: matchTypeValue, relator: "gt"}, []string{"10"}, []string{"9"}, true},
		{"value gt octet", matcher{comparator: comparatorOctet, matchType: matchTypeValue, relator: "gt"}, []string{"10"}, []string{"9"}, false},
		{"value ne", matcher{comparator: comparatorASCIINumeric, matchType: matchTypeValue, relator: "ne"}, []string{"07"}, []string{"7"}, false},
		{"count eq", matcher{comparator: comparatorASCIINumeric, matchType: matchTypeCount, relator: "eq"}, []string{"a", "b", "c"}, []string{"3"}, true},
		{"count ge", matcher{comparator: comparatorASCIINumeric, matchType: matchTypeCount, relator: "ge"}, []string{"a"}, []string{"2"}, false},
		{"count of empty", matcher{comparator: comparatorASCIINumeric, matchType: matchTypeCount, relator: "eq"}, nil, []string{"0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.matchValues(tt.values, tt.keys); got != tt.want {
				t.Errorf("matchValues(%q, %q) = %v, want %v", tt.values, tt.keys, got, tt.want)
			}
		})
	}
}

func TestNumericComparator(t *testing.T) {
	cmp := comparatorASCIINumeric.Compare
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "1", 0},
		{"01", "1", 0},
		{"2", "10", -1},
		{"10", "2", 1},
		{"7up", "7", 0},
		{"abc", "def", 0},
		{"abc", "999999", 1},
		{"999999", "abc", -1},
	}
	for _, tt := range tests {
		got := cmp(tt.a, tt.b)
		if (got < 0) != (tt.want < 0) || (got > 0) != (tt.want > 0) {
			t.Errorf("Compare(%q, %q) = %d, want sign of %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		addr          string
		local, domain string
	}{
		{"user@example.com", "user", "example.com"},
		{"user", "user", ""},
		{"a@b@c", "a@b", "c"},
		{"@domain", "", "domain"},
	}
	for _, tt := range tests {
		local, domain := splitAddress(tt.addr)
		if local != tt.local || domain != tt.domain {
			t.Errorf("splitAddress(%q) = %q, %q, want %q, %q", tt.addr, local, domain, tt.local, tt.domain)
		}
	}
}

func TestParseFlags(t *testing.T) {
	got := parseFlags([]string{"\\Seen \\Flagged", "\\seen", "custom"})
	want := []string{"\\Seen", "\\Flagged", "custom"}
	if len(got) != len(want) {
		t.Fatalf("parseFlags() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("flag %d = %q, want %q", i, got[i], want[i])
		}
	}
}
