package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// require
//
//	Syntax: require <capabilities: string-list>
//
// Loads the listed extensions into the current compilation. The command is
// handled entirely at validation time and emits no code, so adding a
// redundant require to a script does not change its bytecode.
var cmdRequire = &Command{
	Name:     "require",
	Kind:     KindCommand,
	MinArgs:  1,
	MaxArgs:  1,
	MaxTests: 0,

	IsRequire: true,

	Validate: func(v *Validator, cmd *CommandContext) bool {
		node := cmd.Node

		// valid placement: top level, before any other command
		prev := node.PrecedingCommand()
		prevCtx := cmd.PrecedingContext()
		if !cmd.IsToplevel() ||
			(prev != nil && (prevCtx == nil || !prevCtx.Command.IsRequire)) {
			v.errorAt(node.Position, "require commands can only be placed at top level "+
				"at the beginning of the file")
			return false
		}

		arg := cmd.PositionalArguments()[0]
		if arg.Type != ast.ArgumentString && arg.Type != ast.ArgumentStringList {
			v.errorAt(arg.Position, "the require command accepts a single string or string list argument, "+
				"but %s was found", arg.Name())
			return false
		}

		result := true
		for _, name := range arg.StringList() {
			if !v.LoadExtension(name, arg.Position) {
				result = false
			}
		}
		return result
	},
}
