package sieve

import (
	"strings"

	"github.com/d--j/go-sieve/ast"
)

// Comparator is a named equality/ordering function over strings.
type Comparator struct {
	Identifier string
	// Extension owns non-core comparators; nil for the built-ins.
	Extension *Extension
	// Normalize folds a string for equality and substring operations.
	Normalize func(string) string
	// Compare orders two strings; required for the relational match
	// types.
	Compare func(a, b string) int
	// Substring reports whether the comparator supports the contains and
	// matches operations.
	Substring bool
}

func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

var comparatorOctet = &Comparator{
	Identifier: "i;octet",
	Normalize:  func(s string) string { return s },
	Compare:    strings.Compare,
	Substring:  true,
}

var comparatorASCIICasemap = &Comparator{
	Identifier: "i;ascii-casemap",
	Normalize:  asciiLower,
	Compare: func(a, b string) int {
		return strings.Compare(asciiLower(a), asciiLower(b))
	},
	Substring: true,
}

// numericValue parses the leading digit string per i;ascii-numeric. The
// second result is false for values that do not start with a digit; those
// compare equal to each other and greater than every number.
func numericValue(s string) (uint64, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range []byte(s[:i]) {
		d := uint64(c - '0')
		if n > (^uint64(0)-d)/10 {
			return ^uint64(0), true
		}
		n = n*10 + d
	}
	return n, true
}

var comparatorASCIINumeric = &Comparator{
	Identifier: "i;ascii-numeric",
	Extension:  ComparatorASCIINumericExtension,
	Compare: func(a, b string) int {
		av, aok := numericValue(a)
		bv, bok := numericValue(b)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	},
}

// ComparatorASCIINumericExtension provides the i;ascii-numeric comparator
// (RFC 5228, section 2.7.3).
var ComparatorASCIINumericExtension = &Extension{
	Name:    "comparator-i;ascii-numeric",
	Version: 1,
}

func init() {
	ComparatorASCIINumericExtension.Load = func(inst *Instance, id ExtensionID) error {
		inst.RegisterComparator(comparatorASCIINumeric)
		return nil
	}
}

// builtinComparatorNames are the require names the single comparator
// machinery answers directly: the built-in comparators need no extension of
// their own, requiring them is a no-op.
var builtinComparatorNames = map[string]bool{
	"comparator-i;octet":         true,
	"comparator-i;ascii-casemap": true,
}

// comparatorExtension is the internal pseudo-extension carrying the
// comparator registry and the :comparator tag.
var comparatorExtension = &Extension{
	Name: "@comparators",
	Load: func(inst *Instance, id ExtensionID) error {
		inst.comparatorExt = id
		inst.RegisterComparator(comparatorOctet)
		inst.RegisterComparator(comparatorASCIICasemap)
		return nil
	},
}

// RegisterComparator adds a comparator to the instance. Extensions call
// this from their Load hook.
func (i *Instance) RegisterComparator(c *Comparator) {
	i.comparators[c.Identifier] = c
}

func (i *Instance) lookupComparator(name string) *Comparator {
	return i.comparators[name]
}

// comparatorTag implements :comparator <comparator-name: string>.
var comparatorTag = &Tag{
	Identifier: "comparator",
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		spec, ok := cmd.Data.(hasMatchSpec)
		if !ok {
			v.errorAt(cur.Arg().Position, "the %s %s does not accept a :comparator tag",
				cmd.Command.Name, cmd.Command.Kind)
			return false
		}
		pos := cur.Arg().Position
		cur.Detach()
		arg := cur.Arg()
		if arg == nil || arg.Type != ast.ArgumentString {
			v.errorAt(pos, ":comparator requires a comparator name as argument")
			return false
		}
		cmp := v.instance.lookupComparator(arg.Str)
		if cmp == nil || !v.visible(cmp.Extension) {
			v.errorAt(arg.Position, "unknown comparator '%s'", arg.Str)
			cur.Detach()
			return false
		}
		cur.Detach()
		if spec.matchSpec().Comparator != nil {
			v.errorAt(pos, "the :comparator tag was specified more than once")
			return false
		}
		spec.matchSpec().Comparator = cmp
		return true
	},
}

// LinkComparatorTags registers the :comparator tag with a match test.
func LinkComparatorTags(v *Validator, reg *CommandRegistration) {
	reg.RegisterTag(comparatorTag, v.instance.comparatorExt)
}
