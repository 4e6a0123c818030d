package sieve

// The logical tests. allof, anyof and not have no opcodes of their own:
// the generator expands them into short-circuited conditional jumps (see
// [Generator.GenerateTestJump]). true and false compile to one opcode each
// that only sets the test result.

var tstAnyof = &Command{
	Name:     "anyof",
	Kind:     KindTest,
	MaxArgs:  0,
	MinTests: 1,
	MaxTests: -1,
}

var tstAllof = &Command{
	Name:     "allof",
	Kind:     KindTest,
	MaxArgs:  0,
	MinTests: 1,
	MaxTests: -1,
}

var tstNot = &Command{
	Name:     "not",
	Kind:     KindTest,
	MaxArgs:  0,
	MinTests: 1,
	MaxTests: 1,
}

var tstTrue = &Command{
	Name:     "true",
	Kind:     KindTest,
	MaxArgs:  0,
	MaxTests: 0,
	Generate: func(g *Generator, cmd *CommandContext) bool {
		return g.EmitOpcode(opTestTrue)
	},
}

var tstFalse = &Command{
	Name:     "false",
	Kind:     KindTest,
	MaxArgs:  0,
	MaxTests: 0,
	Generate: func(g *Generator, cmd *CommandContext) bool {
		return g.EmitOpcode(opTestFalse)
	},
}

var opTestTrue = registerCoreOpcode(&Opcode{
	Mnemonic: "TRUE",
	Code:     codeTestTrue,
	Execute: func(renv *RuntimeEnv) error {
		renv.Interp.SetTestResult(true)
		return nil
	},
})

var opTestFalse = registerCoreOpcode(&Opcode{
	Mnemonic: "FALSE",
	Code:     codeTestFalse,
	Execute: func(renv *RuntimeEnv) error {
		renv.Interp.SetTestResult(false)
		return nil
	},
})
