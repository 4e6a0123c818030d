package ast

import (
	"strconv"
	"strings"

	"github.com/d--j/go-sieve/sieveutil"
)

// Unparse renders the tree back into Sieve source. Comments are not
// retained; parsing the output yields a tree equal to the input (modulo the
// scaled spelling of numbers, which are printed in their expanded form).
func Unparse(t *Tree) string {
	var b strings.Builder
	for _, cmd := range t.Commands {
		unparseCommand(&b, cmd, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("    ")
	}
}

func unparseCommand(b *strings.Builder, cmd *Node, depth int) {
	indent(b, depth)
	b.WriteString(cmd.Identifier)
	unparseArguments(b, cmd)
	if cmd.HasBlock {
		b.WriteString(" {\n")
		for _, sub := range cmd.Commands {
			unparseCommand(b, sub, depth+1)
		}
		indent(b, depth)
		b.WriteString("}\n")
	} else {
		b.WriteString(";\n")
	}
}

func unparseArguments(b *strings.Builder, n *Node) {
	for _, arg := range n.Arguments {
		b.WriteByte(' ')
		unparseArgument(b, arg)
	}
	if len(n.Tests) == 1 {
		b.WriteByte(' ')
		unparseTest(b, n.Tests[0])
	} else if len(n.Tests) > 1 {
		b.WriteString(" (")
		for i, t := range n.Tests {
			if i > 0 {
				b.WriteString(", ")
			}
			unparseTest(b, t)
		}
		b.WriteByte(')')
	}
}

func unparseArgument(b *strings.Builder, arg *Argument) {
	switch arg.Type {
	case ArgumentNumber:
		b.WriteString(strconv.FormatUint(arg.Number, 10))
	case ArgumentString:
		b.WriteString(sieveutil.QuoteString(arg.Str))
	case ArgumentStringList:
		b.WriteByte('[')
		for i, s := range arg.List {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(sieveutil.QuoteString(s))
		}
		b.WriteByte(']')
	case ArgumentTag:
		b.WriteByte(':')
		b.WriteString(arg.Tag)
	case ArgumentIdentifier:
		b.WriteString(arg.Identifier)
	}
}

func unparseTest(b *strings.Builder, t *Node) {
	b.WriteString(t.Identifier)
	unparseArguments(b, t)
}
