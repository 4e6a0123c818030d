package sieve

import (
	"fmt"
	"io"
)

// opcodeAt reads and resolves the opcode byte under r. Core opcodes are
// fixed-position; extension opcodes dispatch through the binary's
// dependency table and the extension's sub-code table.
func (b *Binary) opcodeAt(r *codeReader) (*Opcode, error) {
	at := r.pc
	c, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if c < CustomStart {
		op := coreOpcodes[c]
		if op == nil {
			return nil, corruptf("invalid opcode 0x%02x at %04x", c, at)
		}
		return op, nil
	}
	slot := int(c - CustomStart)
	if slot >= len(b.extSlots) {
		return nil, corruptf("opcode 0x%02x at %04x has no extension slot", c, at)
	}
	reg := b.extSlots[slot]
	if reg == nil || reg.ext == nil {
		return nil, corruptf("opcode 0x%02x at %04x: extension '%s' not registered",
			c, at, b.deps[slot].Name)
	}
	sub, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if int(sub) >= len(reg.ext.Opcodes) {
		return nil, corruptf("invalid sub-code 0x%02x for extension '%s' at %04x",
			sub, reg.ext.Name, at)
	}
	return reg.ext.Opcodes[sub], nil
}

// DumpEnv is the state of one binary disassembly run. Opcode Dump
// functions read their operands from it and describe them with Printf.
type DumpEnv struct {
	codeReader
	binary *Binary
	w      io.Writer
	err    error
}

// Printf appends one operand description to the current disassembly line.
func (d *DumpEnv) Printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, " %s", fmt.Sprintf(format, args...))
}

// DumpNumber reads and describes a number operand.
func (d *DumpEnv) DumpNumber(name string) error {
	n, err := d.ReadNumber()
	if err != nil {
		return err
	}
	d.Printf("%s: %d", name, n)
	return nil
}

// DumpString reads and describes a string operand.
func (d *DumpEnv) DumpString(name string) error {
	s, err := d.ReadString()
	if err != nil {
		return err
	}
	d.Printf("%s: %q", name, s)
	return nil
}

// DumpStringList reads and describes a string-list operand.
func (d *DumpEnv) DumpStringList(name string) error {
	list, err := d.ReadStringList()
	if err != nil {
		return err
	}
	d.Printf("%s: %q", name, list)
	return nil
}

// dumpMatchOptionals reads and describes the optional region of a match
// test.
func (d *DumpEnv) dumpMatchOptionals() error {
	m, part, err := d.readMatchOptionals(d.binary.instance)
	if err != nil {
		return err
	}
	if m.comparator != comparatorASCIICasemap {
		d.Printf("comparator %s", m.comparator.Identifier)
	}
	if m.matchType != matchTypeIs {
		if m.matchType.NeedsRelator {
			d.Printf(":%s %q", m.matchType.Identifier, m.relator)
		} else {
			d.Printf(":%s", m.matchType.Identifier)
		}
	}
	if part != addressPartAll {
		d.Printf(":%s", part.Identifier)
	}
	return nil
}

// Dump writes a disassembly of the binary to w: the dependency table, the
// string table and the bytecode with one line per instruction.
func (b *Binary) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Compiled from %s\n", b.Source()); err != nil {
		return err
	}
	if len(b.deps) > 0 {
		if _, err := fmt.Fprintln(w, "\nExtensions:"); err != nil {
			return err
		}
		for i, dep := range b.deps {
			if _, err := fmt.Fprintf(w, "  %2d: %s (version %d)\n", i, dep.Name, dep.Version); err != nil {
				return err
			}
		}
	}
	if len(b.strings) > 0 {
		if _, err := fmt.Fprintln(w, "\nString table:"); err != nil {
			return err
		}
		for i, s := range b.strings {
			if _, err := fmt.Fprintf(w, "  %4d: %q\n", i, s); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(w, "\nCode:"); err != nil {
		return err
	}
	d := &DumpEnv{
		codeReader: codeReader{code: b.code, strings: b.strings},
		binary:     b,
		w:          w,
	}
	for d.pc < len(d.code) {
		at := d.pc
		op, err := b.opcodeAt(&d.codeReader)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  %04x: %s", at, op.Mnemonic); err != nil {
			return err
		}
		if op.Dump != nil {
			if err := op.Dump(d); err != nil {
				return err
			}
			if d.err != nil {
				return d.err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// Hexdump writes a raw hex dump of the binary container to w.
func (b *Binary) Hexdump(w io.Writer) error {
	return b.container.Hexdump(w)
}
