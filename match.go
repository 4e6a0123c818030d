package sieve

import (
	"strconv"
	"strings"
)

// matcher evaluates a resolved match specification against runtime values.
type matcher struct {
	comparator *Comparator
	matchType  *MatchType
	relator    string
}

func relationHolds(relator string, cmp int) bool {
	switch relator {
	case "gt":
		return cmp > 0
	case "ge":
		return cmp >= 0
	case "lt":
		return cmp < 0
	case "le":
		return cmp <= 0
	case "ne":
		return cmp != 0
	}
	// "eq" and the default
	return cmp == 0
}

// matchValues evaluates the match type over all values and keys. The :count
// match type operates on the number of values; every other match type
// succeeds as soon as one value matches one key.
func (m *matcher) matchValues(values, keys []string) bool {
	if m.matchType.Identifier == "count" {
		count := strconv.Itoa(len(values))
		for _, key := range keys {
			if relationHolds(m.relator, m.comparator.Compare(count, key)) {
				return true
			}
		}
		return false
	}
	for _, value := range values {
		for _, key := range keys {
			if m.matchValue(value, key) {
				return true
			}
		}
	}
	return false
}

func (m *matcher) matchValue(value, key string) bool {
	switch m.matchType.Identifier {
	case "contains":
		return strings.Contains(m.comparator.Normalize(value), m.comparator.Normalize(key))
	case "matches":
		return matchWildcard(m.comparator.Normalize(value), m.comparator.Normalize(key))
	case "value":
		return relationHolds(m.relator, m.comparator.Compare(value, key))
	}
	// "is"
	if m.comparator.Normalize != nil {
		return m.comparator.Normalize(value) == m.comparator.Normalize(key)
	}
	return m.comparator.Compare(value, key) == 0
}

// matchWildcard matches value against a pattern where '*' matches any
// sequence of octets and '?' matches exactly one. There is no escape
// character inside match patterns (RFC 5228, section 2.7.1).
func matchWildcard(value, pattern string) bool {
	var vi, pi int
	star := -1
	starVi := 0
	for vi < len(value) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == value[vi]):
			vi++
			pi++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			starVi = vi
			pi++
		case star >= 0:
			pi = star + 1
			starVi++
			vi = starVi
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
