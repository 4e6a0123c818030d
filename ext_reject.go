package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// RejectExtension implements the reject extension (RFC 5429): refusing
// delivery with an explanation sent back to the sender.
var RejectExtension = &Extension{
	Name:    "reject",
	Version: 1,
}

// reject
//
//	Syntax: reject <reason: string>
var cmdReject = &Command{
	Name:     "reject",
	Kind:     KindCommand,
	MinArgs:  1,
	MaxArgs:  1,
	MaxTests: 0,
	Validate: func(v *Validator, cmd *CommandContext) bool {
		return v.ValidatePositionalArgument(cmd, 0, "reason", ast.ArgumentString)
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		if !g.EmitOpcode(opReject) {
			return false
		}
		return g.GenerateArguments(cmd)
	},
}

var opReject = &Opcode{
	Mnemonic: "REJECT",
	Code:     0,
	Dump:     func(d *DumpEnv) error { return d.DumpString("reason") },
	Execute: func(renv *RuntimeEnv) error {
		reason, err := renv.Interp.ReadString()
		if err != nil {
			return err
		}
		return renv.Result.AddReject(reason)
	},
}

func init() {
	opReject.Ext = RejectExtension
	RejectExtension.Opcodes = []*Opcode{opReject}
	RejectExtension.ValidatorLoad = func(v *Validator) error {
		v.RegisterCommand(cmdReject, v.extensionID(RejectExtension))
		return nil
	}
}
