// Package ast holds the abstract syntax tree produced by the Sieve parser.
//
// The tree consists of command nodes, test nodes and argument nodes. Commands
// own their arguments, their tests and their block of sub-commands. Tests own
// arguments and sub-tests (the logical allof/anyof/not tests form a tree).
// Arguments are leaves.
//
// Every node carries the source position it was parsed from and an opaque
// Context slot that the validator and the extensions use to attach resolved
// information for the code generator.
package ast

import "fmt"

// Position is a source location inside a Sieve script.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// NodeType discriminates command nodes from test nodes.
type NodeType int

const (
	NodeCommand NodeType = iota
	NodeTest
)

// ArgumentType is the kind of a parsed argument.
type ArgumentType int

const (
	ArgumentNumber ArgumentType = iota
	ArgumentString
	ArgumentStringList
	ArgumentTag
	ArgumentIdentifier
)

func (t ArgumentType) String() string {
	switch t {
	case ArgumentNumber:
		return "number"
	case ArgumentString:
		return "string"
	case ArgumentStringList:
		return "string list"
	case ArgumentTag:
		return "tag"
	case ArgumentIdentifier:
		return "identifier"
	}
	return "unknown"
}

// Argument is a single command or test argument.
//
// Exactly one of the value fields is meaningful, selected by Type. A string
// list keeps its items as plain strings; the item positions are not retained.
//
// Context is filled during validation (e.g. with the resolved comparator for a
// :comparator tag). Ext is the id of the extension that resolved a tag
// argument, or -1.
type Argument struct {
	Type     ArgumentType
	Position Position

	Number     uint64
	Str        string
	List       []string
	Tag        string
	Identifier string

	Context any
	Ext     int
}

// StringList returns the argument value as a string list. A single string
// argument is lifted to a one-element list; this mirrors the argument-type
// check layer where a string and a string list of length one are
// interchangeable.
func (a *Argument) StringList() []string {
	switch a.Type {
	case ArgumentString:
		return []string{a.Str}
	case ArgumentStringList:
		return a.List
	}
	return nil
}

// Name returns a human-readable description of the argument for diagnostics.
func (a *Argument) Name() string {
	switch a.Type {
	case ArgumentNumber:
		return fmt.Sprintf("number %d", a.Number)
	case ArgumentString:
		return fmt.Sprintf("string %q", a.Str)
	case ArgumentStringList:
		return "string list"
	case ArgumentTag:
		return fmt.Sprintf("tag :%s", a.Tag)
	case ArgumentIdentifier:
		return fmt.Sprintf("identifier '%s'", a.Identifier)
	}
	return "unknown argument"
}

// Node is a command or test node.
type Node struct {
	Type       NodeType
	Identifier string
	Position   Position

	Arguments []*Argument
	Tests     []*Node
	Commands  []*Node

	// HasBlock records whether the command was terminated by a command
	// block instead of a semicolon. An empty block is distinct from no
	// block.
	HasBlock bool

	// Context is attached by the validator; for commands and tests it holds
	// the resolved command context used by the code generator.
	Context any

	parent *Node
}

// Parent returns the enclosing node, or nil for top-level commands.
func (n *Node) Parent() *Node { return n.parent }

// AddCommand appends a sub-command to the node's block.
func (n *Node) AddCommand(cmd *Node) {
	cmd.parent = n
	n.Commands = append(n.Commands, cmd)
}

// AddTest appends a sub-test.
func (n *Node) AddTest(t *Node) {
	t.parent = n
	n.Tests = append(n.Tests, t)
}

// PrecedingCommand returns the sibling command before n, or nil.
func (n *Node) PrecedingCommand() *Node {
	var siblings []*Node
	if n.parent != nil {
		siblings = n.parent.Commands
	}
	for i, c := range siblings {
		if c == n {
			if i == 0 {
				return nil
			}
			return siblings[i-1]
		}
	}
	return nil
}

// Tree is one parsed script.
type Tree struct {
	ScriptName string
	Commands   []*Node

	root Node
}

// NewTree returns an empty tree for the named script.
func NewTree(scriptName string) *Tree {
	t := &Tree{ScriptName: scriptName}
	return t
}

// AddCommand appends a top-level command.
func (t *Tree) AddCommand(cmd *Node) {
	cmd.parent = &t.root
	t.Commands = append(t.Commands, cmd)
	t.root.Commands = t.Commands
}

// Cursor walks the argument list of a node during tag validation. Tag
// validators use it to look at the tag's trailing arguments and to detach
// arguments that are fully consumed at validation time.
type Cursor struct {
	node *Node
	i    int
}

// NewCursor returns a cursor positioned on the i-th argument of n.
func NewCursor(n *Node, i int) *Cursor {
	return &Cursor{node: n, i: i}
}

// Arg returns the argument under the cursor, or nil when the cursor moved
// past the end of the list.
func (c *Cursor) Arg() *Argument {
	if c.i < 0 || c.i >= len(c.node.Arguments) {
		return nil
	}
	return c.node.Arguments[c.i]
}

// Index returns the cursor position.
func (c *Cursor) Index() int { return c.i }

// Detach removes the argument under the cursor from the node. The cursor then
// points at the argument that followed it.
func (c *Cursor) Detach() {
	args := c.node.Arguments
	if c.i < 0 || c.i >= len(args) {
		return
	}
	c.node.Arguments = append(args[:c.i], args[c.i+1:]...)
}

// Next advances the cursor and reports whether an argument is available.
func (c *Cursor) Next() bool {
	c.i++
	return c.i < len(c.node.Arguments)
}
