package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// size
//
//	Syntax: size <":over" / ":under"> <limit: number>

type sizeKind int

const (
	sizeUnassigned sizeKind = iota
	sizeOver
	sizeUnder
)

type sizeData struct {
	kind sizeKind
}

const sizeDupTagError = "exactly one of the ':under' or ':over' tags must be specified " +
	"for the size test, but more were found"

func sizeTagValidate(kind sizeKind) func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
	return func(v *Validator, cmd *CommandContext, cur *ast.Cursor) bool {
		data := cmd.Data.(*sizeData)
		pos := cur.Arg().Position
		cur.Detach()
		if data.kind != sizeUnassigned {
			v.errorAt(pos, sizeDupTagError)
			return false
		}
		data.kind = kind
		return true
	}
}

var sizeOverTag = &Tag{Identifier: "over", Validate: sizeTagValidate(sizeOver)}
var sizeUnderTag = &Tag{Identifier: "under", Validate: sizeTagValidate(sizeUnder)}

var tstSize = &Command{
	Name:     "size",
	Kind:     KindTest,
	MinArgs:  1,
	MaxArgs:  1,
	MaxTests: 0,
	Registered: func(v *Validator, reg *CommandRegistration) {
		reg.RegisterTag(sizeOverTag, ExtensionNone)
		reg.RegisterTag(sizeUnderTag, ExtensionNone)
	},
	PreValidate: func(v *Validator, cmd *CommandContext) bool {
		cmd.Data = &sizeData{}
		return true
	},
	Validate: func(v *Validator, cmd *CommandContext) bool {
		data := cmd.Data.(*sizeData)
		if data.kind == sizeUnassigned {
			v.errorAt(cmd.Node.Position, "the size test requires either the :under or the :over tag to be specified")
			return false
		}
		return v.ValidatePositionalArgument(cmd, 0, "limit", ast.ArgumentNumber)
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*sizeData)
		if data.kind == sizeOver {
			g.EmitOpcode(opSizeOver)
		} else {
			g.EmitOpcode(opSizeUnder)
		}
		return g.GenerateArguments(cmd)
	},
}

func executeSize(over bool) func(renv *RuntimeEnv) error {
	return func(renv *RuntimeEnv) error {
		limit, err := renv.Interp.ReadNumber()
		if err != nil {
			return err
		}
		size, err := renv.Message.PhysicalSize()
		if err != nil {
			return RuntimeErrorf("failed to obtain message size: %s", err)
		}
		if over {
			renv.Interp.SetTestResult(size > limit)
		} else {
			renv.Interp.SetTestResult(size < limit)
		}
		return nil
	}
}

var opSizeOver = registerCoreOpcode(&Opcode{
	Mnemonic: "SIZE_OVER",
	Code:     codeSizeOver,
	Dump:     func(d *DumpEnv) error { return d.DumpNumber("limit") },
	Execute:  executeSize(true),
})

var opSizeUnder = registerCoreOpcode(&Opcode{
	Mnemonic: "SIZE_UNDER",
	Code:     codeSizeUnder,
	Dump:     func(d *DumpEnv) error { return d.DumpNumber("limit") },
	Execute:  executeSize(false),
})
