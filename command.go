package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// CommandKind distinguishes commands from tests.
type CommandKind int

const (
	KindCommand CommandKind = iota
	KindTest
)

func (k CommandKind) String() string {
	if k == KindTest {
		return "test"
	}
	return "command"
}

// Command statically describes one Sieve command or test: its argument
// arity, whether it carries a block, and the hooks the validator and the
// code generator call for it. Extensions own the commands they declare; core
// language commands have no owner.
type Command struct {
	Name string
	Kind CommandKind

	// MinArgs and MaxArgs bound the number of positional arguments.
	// MaxArgs -1 means unbounded.
	MinArgs, MaxArgs int

	// MinTests and MaxTests bound the number of sub-tests (the test of an
	// if command, the test list of anyof). MaxTests -1 means unbounded.
	MinTests, MaxTests int

	// AllowsBlock commands are terminated by a command block instead of a
	// semicolon.
	AllowsBlock bool

	// IsRequire marks the require command itself; the validator uses it
	// for the placement rule.
	IsRequire bool

	// Registered is called when the command is registered with a
	// validator; it registers the command's tags.
	Registered func(v *Validator, reg *CommandRegistration)
	// PreValidate runs before tag resolution, typically to attach a
	// context structure to the command.
	PreValidate func(v *Validator, cmd *CommandContext) bool
	// Validate runs after tag resolution and the positional count check.
	Validate func(v *Validator, cmd *CommandContext) bool
	// Generate emits the command's bytecode. Commands without a Generate
	// hook emit nothing (require).
	Generate func(g *Generator, cmd *CommandContext) bool
}

// Tag statically describes a tagged argument. A tag either matches by its
// identifier, or — for polymorphic tag families like the address parts — by
// its InstanceOf predicate.
type Tag struct {
	Identifier string

	// InstanceOf decides family membership by name. nil means exact match
	// on Identifier.
	InstanceOf func(v *Validator, cmd *CommandContext, name string) bool

	// Validate processes the tag. The cursor is positioned on the tag
	// argument; the hook detaches it, consumes following value arguments
	// and records the result in the command context. The command's
	// Generate hook later turns that context into optional operands.
	Validate func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool
}

type tagRegistration struct {
	tag *Tag
	ext ExtensionID
}

// CommandRegistration binds a command to a validator run together with the
// tags registered for it.
type CommandRegistration struct {
	Command *Command
	ext     ExtensionID
	tags    []*tagRegistration
}

// RegisterTag adds a tag to the command for this validator run. ext is the
// id of the extension providing the tag, or [ExtensionNone].
func (r *CommandRegistration) RegisterTag(tag *Tag, ext ExtensionID) {
	r.tags = append(r.tags, &tagRegistration{tag: tag, ext: ext})
}

// findTag resolves a tag name against the registration: exact identifier
// match first, then the InstanceOf predicates in registration order.
func (r *CommandRegistration) findTag(v *Validator, cmd *CommandContext, name string) *tagRegistration {
	for _, t := range r.tags {
		if t.tag.InstanceOf == nil && t.tag.Identifier == name {
			return t
		}
	}
	for _, t := range r.tags {
		if t.tag.InstanceOf != nil && t.tag.InstanceOf(v, cmd, name) {
			return t
		}
	}
	return nil
}

// CommandContext is the validator's per-node context for a command or test.
// It is stored in the node's Context slot and read back by the generator.
type CommandContext struct {
	Node         *ast.Node
	Command      *Command
	Registration *CommandRegistration

	// Data is the command's private validation context, attached by its
	// PreValidate hook.
	Data any
}

// IsToplevel reports whether the command is a top-level command of the
// script.
func (c *CommandContext) IsToplevel() bool {
	return c.Node.Parent() == nil || c.Node.Parent().Identifier == ""
}

// PrecedingContext returns the context of the sibling command before this
// one, or nil.
func (c *CommandContext) PrecedingContext() *CommandContext {
	prev := c.Node.PrecedingCommand()
	if prev == nil {
		return nil
	}
	ctx, _ := prev.Context.(*CommandContext)
	return ctx
}

// PositionalArguments returns the non-tag arguments of the node, in order.
func (c *CommandContext) PositionalArguments() []*ast.Argument {
	var out []*ast.Argument
	for _, a := range c.Node.Arguments {
		if a.Type != ast.ArgumentTag {
			out = append(out, a)
		}
	}
	return out
}

func (c *CommandContext) location(v *Validator) *Location {
	return v.location(c.Node.Position)
}

// MatchSpec is the resolved (address-part, match-type, comparator) triple of
// a match test. Missing members default to (all, is, i;ascii-casemap).
type MatchSpec struct {
	Comparator  *Comparator
	MatchType   *MatchType
	Relator     string
	AddressPart *AddressPart
}

type hasMatchSpec interface {
	matchSpec() *MatchSpec
}

func (s *MatchSpec) matchSpec() *MatchSpec { return s }

func (s *MatchSpec) applyDefaults() {
	if s.Comparator == nil {
		s.Comparator = comparatorASCIICasemap
	}
	if s.MatchType == nil {
		s.MatchType = matchTypeIs
	}
	if s.AddressPart == nil {
		s.AddressPart = addressPartAll
	}
}
