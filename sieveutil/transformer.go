// Package sieveutil contains text transformations shared by the Sieve lexer,
// the pretty printer and message handling code.
package sieveutil

import (
	"strings"

	"golang.org/x/text/transform"
)

const cr = '\r'
const lf = '\n'
const dot = '.'

// DotUnstuffingTransformer is a [transform.Transformer] that removes the
// dot-stuffing from the body of a multi-line string: a line starting with
// two dots loses the first one. The terminating lone-dot line is not part of
// the input; the lexer strips it before transforming.
type DotUnstuffingTransformer struct {
	// startOfLine is true when the next input byte begins a line.
	startOfLine bool
	// started is false before the first byte was seen.
	started bool
}

func (t *DotUnstuffingTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nDst < len(dst) && nSrc < len(src) {
		c := src[nSrc]
		atStart := t.startOfLine || !t.started
		if atStart && c == dot {
			if !atEOF && nSrc+1 >= len(src) {
				// cannot decide yet whether this dot is stuffing
				err = transform.ErrShortSrc
				return
			}
			if nSrc+1 < len(src) && src[nSrc+1] == dot {
				// stuffed dot, drop it
				nSrc++
				t.started = true
				t.startOfLine = false
				continue
			}
		}
		t.started = true
		t.startOfLine = c == lf
		dst[nDst] = c
		nDst++
		nSrc++
	}
	if nSrc < len(src) {
		err = transform.ErrShortDst
	}
	return
}

func (t *DotUnstuffingTransformer) Reset() {
	t.startOfLine = false
	t.started = false
}

var _ transform.Transformer = &DotUnstuffingTransformer{}

// DotUnstuff removes the dot-stuffing from s.
func DotUnstuff(s string) string {
	dst, _, err := transform.String(&DotUnstuffingTransformer{}, s)
	if err != nil {
		panic(err)
	}
	return dst
}

// DotStuffingTransformer is a [transform.Transformer] that dot-stuffs src:
// every line that starts with a dot gets a second dot prepended, so the
// result can be embedded in a multi-line string without terminating it early.
type DotStuffingTransformer struct {
	startOfLine bool
	started     bool
}

func (t *DotStuffingTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nDst < len(dst) && nSrc < len(src) {
		c := src[nSrc]
		atStart := t.startOfLine || !t.started
		if atStart && c == dot {
			if nDst+1 >= len(dst) {
				err = transform.ErrShortDst
				return
			}
			dst[nDst] = dot
			nDst++
		}
		t.started = true
		t.startOfLine = c == lf
		dst[nDst] = c
		nDst++
		nSrc++
	}
	if nSrc < len(src) {
		err = transform.ErrShortDst
	}
	return
}

func (t *DotStuffingTransformer) Reset() {
	t.startOfLine = false
	t.started = false
}

var _ transform.Transformer = &DotStuffingTransformer{}

// DotStuff dot-stuffs s.
func DotStuff(s string) string {
	dst, _, err := transform.String(&DotStuffingTransformer{}, s)
	if err != nil {
		panic(err)
	}
	return dst
}

// CrLfToLfTransformer is a [transform.Transformer] that replaces all CR LF
// pairs and lone CRs in src with LF in dst. The lexer runs scripts through it
// so that line handling only ever sees LF.
type CrLfToLfTransformer struct {
	prevCR bool
}

func (t *CrLfToLfTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nDst < len(dst) && nSrc < len(src) {
		c := src[nSrc]
		if c == lf && t.prevCR {
			t.prevCR = false
			nSrc++
			continue
		}
		t.prevCR = c == cr
		if t.prevCR {
			c = lf
		}
		dst[nDst] = c
		nDst++
		nSrc++
	}
	if nSrc < len(src) {
		err = transform.ErrShortDst
	}
	if err == nil && !atEOF && len(src) > 0 && src[len(src)-1] == cr {
		err = transform.ErrShortSrc
		nSrc--
		nDst--
		return
	}
	return
}

func (t *CrLfToLfTransformer) Reset() {
	t.prevCR = false
}

var _ transform.Transformer = &CrLfToLfTransformer{}

// CrLfToLf replaces all line endings in s with LF.
func CrLfToLf(s string) string {
	dst, _, err := transform.String(&CrLfToLfTransformer{}, s)
	if err != nil {
		panic(err)
	}
	return dst
}

// QuoteString renders s as a Sieve string literal. Strings containing line
// breaks and ending in one are rendered as a multi-line text: literal with
// dot-stuffing applied, everything else as a quoted string with backslash
// escapes. Line breaks in quoted strings are legal per RFC 5228, so values
// that do not end in a line break round-trip through the quoted form.
func QuoteString(s string) string {
	if strings.ContainsRune(s, lf) && strings.HasSuffix(s, "\n") {
		return "text:\n" + DotStuff(s) + ".\n"
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}
