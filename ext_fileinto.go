package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// FileIntoExtension implements the fileinto extension (RFC 5228, section
// 4.1): delivery into a specific mailbox.
var FileIntoExtension = &Extension{
	Name:    "fileinto",
	Version: 1,
}

// fileinto
//
//	Syntax: fileinto [":copy"] [":flags" <list-of-flags: string-list>]
//	                 <mailbox: string>
var cmdFileInto = &Command{
	Name:     "fileinto",
	Kind:     KindCommand,
	MinArgs:  1,
	MaxArgs:  1,
	MaxTests: 0,
	PreValidate: func(v *Validator, cmd *CommandContext) bool {
		cmd.Data = &actionData{}
		return true
	},
	Validate: func(v *Validator, cmd *CommandContext) bool {
		return v.ValidatePositionalArgument(cmd, 0, "mailbox", ast.ArgumentString)
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*actionData)
		if !g.EmitOpcode(opFileInto) {
			return false
		}
		emitActionOptionals(g, data)
		return g.GenerateArguments(cmd)
	},
}

var opFileInto = &Opcode{
	Mnemonic: "FILEINTO",
	Code:     0,
	Dump: func(d *DumpEnv) error {
		if err := dumpActionOptionals(d); err != nil {
			return err
		}
		return d.DumpString("mailbox")
	},
	Execute: func(renv *RuntimeEnv) error {
		ops, err := readActionOptionals(&renv.Interp.codeReader)
		if err != nil {
			return err
		}
		mailbox, err := renv.Interp.ReadString()
		if err != nil {
			return err
		}
		flags := ops.flags
		if flags == nil {
			flags = internalFlags(renv.Interp)
		}
		return renv.Result.AddFileInto(mailbox, flags, ops.copy)
	},
}

func init() {
	opFileInto.Ext = FileIntoExtension
	FileIntoExtension.Opcodes = []*Opcode{opFileInto}
	FileIntoExtension.ValidatorLoad = func(v *Validator) error {
		v.RegisterCommand(cmdFileInto, v.extensionID(FileIntoExtension))
		return nil
	}
}
