package sieve

// CustomStart is the first opcode byte available to extensions. An
// extension opcode byte is CustomStart plus the owning extension's index in
// the binary's dependency table, followed by a per-extension sub-code byte.
const CustomStart byte = 0x20

// Core opcode bytes; all below [CustomStart].
const (
	codeJmp        byte = 0x01
	codeJmpIfTrue  byte = 0x02
	codeJmpIfFalse byte = 0x03
	codeStop       byte = 0x04
	codeKeep       byte = 0x05
	codeDiscard    byte = 0x06
	codeRedirect   byte = 0x07
	codeTestTrue   byte = 0x08
	codeTestFalse  byte = 0x09
	codeSizeOver   byte = 0x0a
	codeSizeUnder  byte = 0x0b
	codeHeader     byte = 0x0c
	codeAddress    byte = 0x0d
	codeExists     byte = 0x0e
)

// Opcode describes one instruction: its mnemonic for dumps, its code byte
// (for extension opcodes: the sub-code, the position in the extension's
// opcode list), and the dump and execute functions that read the opcode's
// inline operands.
type Opcode struct {
	Mnemonic string
	Code     byte
	Ext      *Extension

	// Dump writes a disassembly of the operands; it must consume exactly
	// the operand bytes.
	Dump func(d *DumpEnv) error
	// Execute reads the operands and performs the opcode's effect.
	// Control opcodes move the program counter through the interpreter;
	// test opcodes set the test result and do not branch themselves.
	Execute func(renv *RuntimeEnv) error
}

var coreOpcodes [CustomStart]*Opcode

func registerCoreOpcode(op *Opcode) *Opcode {
	if coreOpcodes[op.Code] != nil {
		panic("sieve: duplicate core opcode " + op.Mnemonic)
	}
	coreOpcodes[op.Code] = op
	return op
}

// Control opcodes. Jump offsets are relative to the position right after
// the 4-byte offset operand.

var opJmp = registerCoreOpcode(&Opcode{
	Mnemonic: "JMP",
	Code:     codeJmp,
	Dump:     dumpJump,
	Execute: func(renv *RuntimeEnv) error {
		off, err := renv.Interp.ReadJumpOffset()
		if err != nil {
			return err
		}
		return renv.Interp.jumpRel(off)
	},
})

var opJmpIfTrue = registerCoreOpcode(&Opcode{
	Mnemonic: "JMP_IF_TRUE",
	Code:     codeJmpIfTrue,
	Dump:     dumpJump,
	Execute: func(renv *RuntimeEnv) error {
		off, err := renv.Interp.ReadJumpOffset()
		if err != nil {
			return err
		}
		if renv.Interp.TestResult() {
			return renv.Interp.jumpRel(off)
		}
		return nil
	},
})

var opJmpIfFalse = registerCoreOpcode(&Opcode{
	Mnemonic: "JMP_IF_FALSE",
	Code:     codeJmpIfFalse,
	Dump:     dumpJump,
	Execute: func(renv *RuntimeEnv) error {
		off, err := renv.Interp.ReadJumpOffset()
		if err != nil {
			return err
		}
		if !renv.Interp.TestResult() {
			return renv.Interp.jumpRel(off)
		}
		return nil
	},
})

// errStop terminates the dispatch loop successfully.
var opStop = registerCoreOpcode(&Opcode{
	Mnemonic: "STOP",
	Code:     codeStop,
	Execute: func(renv *RuntimeEnv) error {
		return errStop
	},
})

func dumpJump(d *DumpEnv) error {
	off, err := d.ReadJumpOffset()
	if err != nil {
		return err
	}
	d.Printf("-> %04x", d.pc+int(off))
	return nil
}
