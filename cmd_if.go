package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// if / elsif / else
//
//	Syntax: if <test> <block>
//	        elsif <test> <block>
//	        else <block>
//
// The conditional chain compiles to the test code followed by a
// jump-if-false over the block. Every branch body that is followed by
// another chain member ends in an unconditional jump to the end of the
// chain; the fix-up sites travel along the chain in the context data of the
// next member.

// chainData carries the pending end-of-chain jump sites into the generation
// of the next chain member.
type chainData struct {
	endJumps []int
}

var cmdIf = &Command{
	Name:        "if",
	Kind:        KindCommand,
	MaxArgs:     0,
	MinTests:    1,
	MaxTests:    1,
	AllowsBlock: true,
}

var cmdElsif = &Command{
	Name:        "elsif",
	Kind:        KindCommand,
	MaxArgs:     0,
	MinTests:    1,
	MaxTests:    1,
	AllowsBlock: true,
}

var cmdElse = &Command{
	Name:        "else",
	Kind:        KindCommand,
	MaxArgs:     0,
	MaxTests:    0,
	AllowsBlock: true,
}

// The Validate/Generate hooks are wired up here instead of in the var
// declarations above because they mutually reference cmdIf/cmdElsif/cmdElse,
// which would otherwise form an initialization cycle.
func init() {
	cmdIf.Generate = generateIf
	cmdElsif.Validate = validateElse
	cmdElsif.Generate = generateIf
	cmdElse.Validate = validateElse
	cmdElse.Generate = generateElse
}

func validateElse(v *Validator, cmd *CommandContext) bool {
	prev := cmd.PrecedingContext()
	if prev == nil || (prev.Command != cmdIf && prev.Command != cmdElsif) {
		v.errorAt(cmd.Node.Position, "the %s command must directly follow an if or elsif command",
			cmd.Command.Name)
		return false
	}
	return true
}

// nextChainMember returns the validated elsif/else command directly
// following node, if any.
func nextChainMember(node *ast.Node) *CommandContext {
	parent := node.Parent()
	if parent == nil {
		return nil
	}
	for i, sibling := range parent.Commands {
		if sibling != node || i+1 >= len(parent.Commands) {
			continue
		}
		ctx, _ := parent.Commands[i+1].Context.(*CommandContext)
		if ctx != nil && (ctx.Command == cmdElsif || ctx.Command == cmdElse) {
			return ctx
		}
		return nil
	}
	return nil
}

func generateIf(g *Generator, cmd *CommandContext) bool {
	falseJumps, ok := g.GenerateTestJump(cmd.Node.Tests[0], false)
	if !ok {
		return false
	}
	if !g.GenerateBlock(cmd.Node.Commands) {
		return false
	}

	var endJumps []int
	if prev, ok := cmd.Data.(*chainData); ok {
		endJumps = prev.endJumps
	}
	next := nextChainMember(cmd.Node)
	if next != nil {
		endJumps = append(endJumps, g.EmitJump(opJmp))
		next.Data = &chainData{endJumps: endJumps}
	}

	// a false test continues right here: at the next chain member, or at
	// the end of the chain
	for _, site := range falseJumps {
		g.ResolveJump(site)
	}
	if next == nil {
		for _, site := range endJumps {
			g.ResolveJump(site)
		}
	}
	return true
}

func generateElse(g *Generator, cmd *CommandContext) bool {
	if !g.GenerateBlock(cmd.Node.Commands) {
		return false
	}
	if prev, ok := cmd.Data.(*chainData); ok {
		for _, site := range prev.endJumps {
			g.ResolveJump(site)
		}
	}
	return true
}

// stop
//
//	Syntax: stop
//
// Ends script execution immediately; pending actions and the implicit keep
// state stay as they are.
var cmdStop = &Command{
	Name:     "stop",
	Kind:     KindCommand,
	MaxArgs:  0,
	MaxTests: 0,
	Generate: func(g *Generator, cmd *CommandContext) bool {
		return g.EmitOpcode(opStop)
	},
}
