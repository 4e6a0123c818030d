package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// MatchType describes how keys are compared against values: the :is,
// :contains and :matches match types of the base language and the :count
// and :value relational match types.
type MatchType struct {
	Identifier string
	// Extension owns non-core match types; nil for the built-ins.
	Extension *Extension
	// NeedsRelator match types consume a relator string ("gt", "ge",
	// "lt", "le", "eq", "ne") following the tag.
	NeedsRelator bool
	// NeedsSubstring match types require a comparator that supports
	// substring operations.
	NeedsSubstring bool
}

var matchTypeIs = &MatchType{Identifier: "is"}
var matchTypeContains = &MatchType{Identifier: "contains", NeedsSubstring: true}
var matchTypeMatches = &MatchType{Identifier: "matches", NeedsSubstring: true}

// matchTypeExtension is the internal pseudo-extension carrying the
// match-type registry and the match-type tag family.
var matchTypeExtension = &Extension{
	Name: "@match-types",
	Load: func(inst *Instance, id ExtensionID) error {
		inst.matchTypeExt = id
		inst.RegisterMatchType(matchTypeIs)
		inst.RegisterMatchType(matchTypeContains)
		inst.RegisterMatchType(matchTypeMatches)
		return nil
	},
}

// RegisterMatchType adds a match type to the instance. Extensions call this
// from their Load hook.
func (i *Instance) RegisterMatchType(m *MatchType) {
	i.matchTypes[m.Identifier] = m
}

func (i *Instance) lookupMatchType(name string) *MatchType {
	return i.matchTypes[name]
}

func validRelator(s string) bool {
	switch s {
	case "gt", "ge", "lt", "le", "eq", "ne":
		return true
	}
	return false
}

// matchTypeTag is the polymorphic tag family covering every registered
// match type (:is, :contains, :matches, :count, :value, ...).
var matchTypeTag = &Tag{
	Identifier: "match-type",
	InstanceOf: func(v *Validator, cmd *CommandContext, name string) bool {
		m := v.instance.lookupMatchType(name)
		return m != nil && v.visible(m.Extension)
	},
	Validate: func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		arg := cur.Arg()
		spec, ok := cmd.Data.(hasMatchSpec)
		if !ok {
			v.errorAt(arg.Position, "the %s %s does not accept a match-type tag",
				cmd.Command.Name, cmd.Command.Kind)
			return false
		}
		m := v.instance.lookupMatchType(arg.Tag)
		pos := arg.Position
		cur.Detach()
		if spec.matchSpec().MatchType != nil {
			v.errorAt(pos, "multiple match-type tags were specified, only one is allowed")
			return false
		}
		spec.matchSpec().MatchType = m
		if m.NeedsRelator {
			rel := cur.Arg()
			if rel == nil || rel.Type != ast.ArgumentString || !validRelator(rel.Str) {
				v.errorAt(pos, "the :%s match type requires a relator argument "+
					"(\"gt\", \"ge\", \"lt\", \"le\", \"eq\" or \"ne\")", m.Identifier)
				return false
			}
			spec.matchSpec().Relator = rel.Str
			cur.Detach()
		}
		return true
	},
}

// LinkMatchTypeTags registers the match-type tag family with a match test.
func LinkMatchTypeTags(v *Validator, reg *CommandRegistration) {
	reg.RegisterTag(matchTypeTag, v.instance.matchTypeExt)
}

// validateMatchSpec applies the default triple and cross-checks the
// comparator against the match type. Called from the Validate hook of the
// match tests.
func validateMatchSpec(v *Validator, cmd *CommandContext, spec *MatchSpec) bool {
	spec.applyDefaults()
	if spec.MatchType.NeedsSubstring && !spec.Comparator.Substring {
		v.errorAt(cmd.Node.Position, "the %s comparator does not support the :%s match type",
			spec.Comparator.Identifier, spec.MatchType.Identifier)
		return false
	}
	if spec.MatchType.NeedsRelator && spec.Comparator.Compare == nil {
		v.errorAt(cmd.Node.Position, "the %s comparator does not define an ordering",
			spec.Comparator.Identifier)
		return false
	}
	return true
}
