package sieve

import (
	"net/mail"

	"github.com/d--j/go-sieve/ast"
)

// keep
//
//	Syntax: keep [":flags" <list-of-flags: string-list>]
//
// Files the message into the user's default mailbox. The :flags modifier is
// only available with the imap4flags extension.
var cmdKeep = &Command{
	Name:     "keep",
	Kind:     KindCommand,
	MaxArgs:  0,
	MaxTests: 0,
	PreValidate: func(v *Validator, cmd *CommandContext) bool {
		cmd.Data = &actionData{}
		return true
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*actionData)
		if !g.EmitOpcode(opKeep) {
			return false
		}
		emitActionOptionals(g, data)
		return true
	},
}

// discard
//
//	Syntax: discard
var cmdDiscard = &Command{
	Name:     "discard",
	Kind:     KindCommand,
	MaxArgs:  0,
	MaxTests: 0,
	Generate: func(g *Generator, cmd *CommandContext) bool {
		return g.EmitOpcode(opDiscard)
	},
}

// redirect
//
//	Syntax: redirect [":copy"] <address: string>
//
// The :copy modifier is only available with the copy extension.
var cmdRedirect = &Command{
	Name:     "redirect",
	Kind:     KindCommand,
	MinArgs:  1,
	MaxArgs:  1,
	MaxTests: 0,
	PreValidate: func(v *Validator, cmd *CommandContext) bool {
		cmd.Data = &actionData{}
		return true
	},
	Validate: func(v *Validator, cmd *CommandContext) bool {
		if !v.ValidatePositionalArgument(cmd, 0, "address", ast.ArgumentString) {
			return false
		}
		arg := cmd.PositionalArguments()[0]
		if _, err := mail.ParseAddress(arg.Str); err != nil {
			v.errorAt(arg.Position, "specified redirect address '%s' is invalid", arg.Str)
			return false
		}
		return true
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*actionData)
		if !g.EmitOpcode(opRedirect) {
			return false
		}
		emitActionOptionals(g, data)
		return g.GenerateArguments(cmd)
	},
}

// emitActionOptionals writes the optional-operand region of an action
// opcode: the :copy marker and the :flags list.
func emitActionOptionals(g *Generator, data *actionData) {
	if data.hasCopy {
		g.EmitOptional(OptCopy)
	}
	if data.flags != nil {
		g.EmitOptional(OptFlags)
		g.EmitStringList(data.flags)
	}
	g.EmitOptionalEnd()
}

// actionOperands is the decoded optional region of an action opcode.
type actionOperands struct {
	copy  bool
	flags []string
}

func readActionOptionals(r *codeReader) (*actionOperands, error) {
	ops := &actionOperands{}
	err := r.ReadOptionals(func(code byte) error {
		switch code {
		case OptCopy:
			ops.copy = true
		case OptFlags:
			flags, err := r.ReadStringList()
			if err != nil {
				return err
			}
			ops.flags = flags
		default:
			return corruptf("unknown optional operand %d in action", code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

var opKeep = registerCoreOpcode(&Opcode{
	Mnemonic: "KEEP",
	Code:     codeKeep,
	Dump:     dumpActionOptionals,
	Execute: func(renv *RuntimeEnv) error {
		ops, err := readActionOptionals(&renv.Interp.codeReader)
		if err != nil {
			return err
		}
		flags := ops.flags
		if flags == nil {
			flags = internalFlags(renv.Interp)
		}
		return renv.Result.AddKeep(flags)
	},
})

var opDiscard = registerCoreOpcode(&Opcode{
	Mnemonic: "DISCARD",
	Code:     codeDiscard,
	Execute: func(renv *RuntimeEnv) error {
		renv.Result.AddDiscard()
		return nil
	},
})

var opRedirect = registerCoreOpcode(&Opcode{
	Mnemonic: "REDIRECT",
	Code:     codeRedirect,
	Dump: func(d *DumpEnv) error {
		if err := dumpActionOptionals(d); err != nil {
			return err
		}
		return d.DumpString("address")
	},
	Execute: func(renv *RuntimeEnv) error {
		ops, err := readActionOptionals(&renv.Interp.codeReader)
		if err != nil {
			return err
		}
		address, err := renv.Interp.ReadString()
		if err != nil {
			return err
		}
		return renv.Result.AddRedirect(address, ops.copy)
	},
})

func dumpActionOptionals(d *DumpEnv) error {
	ops, err := readActionOptionals(&d.codeReader)
	if err != nil {
		return err
	}
	if ops.copy {
		d.Printf("copy")
	}
	if ops.flags != nil {
		d.Printf("flags%s", flagSuffix(ops.flags))
	}
	return nil
}
