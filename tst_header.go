package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// header
//
//	Syntax: header [COMPARATOR] [MATCH-TYPE]
//	               <header-names: string-list> <key-list: string-list>

type headerTestData struct {
	MatchSpec
}

var tstHeader = &Command{
	Name:     "header",
	Kind:     KindTest,
	MinArgs:  2,
	MaxArgs:  2,
	MaxTests: 0,
	Registered: func(v *Validator, reg *CommandRegistration) {
		LinkComparatorTags(v, reg)
		LinkMatchTypeTags(v, reg)
	},
	PreValidate: func(v *Validator, cmd *CommandContext) bool {
		cmd.Data = &headerTestData{}
		return true
	},
	Validate: func(v *Validator, cmd *CommandContext) bool {
		if !v.ValidatePositionalArgument(cmd, 0, "header names", ast.ArgumentStringList) ||
			!v.ValidatePositionalArgument(cmd, 1, "key list", ast.ArgumentStringList) {
			return false
		}
		data := cmd.Data.(*headerTestData)
		return validateMatchSpec(v, cmd, &data.MatchSpec)
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		data := cmd.Data.(*headerTestData)
		if !g.EmitOpcode(opHeader) {
			return false
		}
		g.emitMatchOptionals(&data.MatchSpec)
		positionals := cmd.PositionalArguments()
		g.EmitStringList(positionals[0].StringList())
		g.EmitStringList(positionals[1].StringList())
		return true
	},
}

var opHeader = registerCoreOpcode(&Opcode{
	Mnemonic: "HEADER",
	Code:     codeHeader,
	Dump:     dumpMatchTest,
	Execute: func(renv *RuntimeEnv) error {
		m, _, err := renv.Interp.readMatchOptionals(renv.Instance)
		if err != nil {
			return err
		}
		names, err := renv.Interp.ReadStringList()
		if err != nil {
			return err
		}
		keys, err := renv.Interp.ReadStringList()
		if err != nil {
			return err
		}
		var values []string
		for _, name := range names {
			hv, err := renv.Message.HeaderValues(name, false)
			if err != nil {
				return RuntimeErrorf("failed to read header '%s': %s", name, err)
			}
			values = append(values, hv...)
		}
		renv.Interp.SetTestResult(m.matchValues(values, keys))
		return nil
	},
})

// dumpMatchTest disassembles the operand layout shared by the header,
// address and envelope tests.
func dumpMatchTest(d *DumpEnv) error {
	if err := d.dumpMatchOptionals(); err != nil {
		return err
	}
	if err := d.DumpStringList("names"); err != nil {
		return err
	}
	return d.DumpStringList("keys")
}

// exists
//
//	Syntax: exists <header-names: string-list>
var tstExists = &Command{
	Name:     "exists",
	Kind:     KindTest,
	MinArgs:  1,
	MaxArgs:  1,
	MaxTests: 0,
	Validate: func(v *Validator, cmd *CommandContext) bool {
		return v.ValidatePositionalArgument(cmd, 0, "header names", ast.ArgumentStringList)
	},
	Generate: func(g *Generator, cmd *CommandContext) bool {
		if !g.EmitOpcode(opExists) {
			return false
		}
		g.EmitStringList(cmd.PositionalArguments()[0].StringList())
		return true
	},
}

var opExists = registerCoreOpcode(&Opcode{
	Mnemonic: "EXISTS",
	Code:     codeExists,
	Dump:     func(d *DumpEnv) error { return d.DumpStringList("names") },
	Execute: func(renv *RuntimeEnv) error {
		names, err := renv.Interp.ReadStringList()
		if err != nil {
			return err
		}
		result := true
		for _, name := range names {
			hv, err := renv.Message.HeaderValues(name, false)
			if err != nil {
				return RuntimeErrorf("failed to read header '%s': %s", name, err)
			}
			if len(hv) == 0 {
				result = false
				break
			}
		}
		renv.Interp.SetTestResult(result)
		return nil
	},
})
