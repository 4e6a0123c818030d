package sieve

import (
	"encoding/binary"

	bincont "github.com/d--j/go-sieve/binary"
)

// Optional-operand id codes. An optional region is a sequence of
// (code, payload) pairs terminated by a zero byte. The codes share one
// namespace across the core opcodes; extension opcodes are free to define
// their own codes for their own optional regions.
const (
	optEnd byte = 0

	// OptComparator carries the comparator identifier of a match test.
	OptComparator byte = 1
	// OptMatchType carries the match-type identifier, followed by the
	// relator for the relational match types.
	OptMatchType byte = 2
	// OptAddressPart carries the address-part identifier.
	OptAddressPart byte = 3
	// OptCopy marks a fileinto or redirect with the :copy modifier; it
	// has no payload.
	OptCopy byte = 4
	// OptFlags carries the IMAP flag list of a keep or fileinto action.
	OptFlags byte = 5
)

func appendVarint(dst []byte, v uint64) []byte {
	return bincont.AppendVarint(dst, v)
}

// codeReader reads inline operands from a bytecode stream. Both the
// interpreter and the binary dumper are built on it. All read failures are
// corruption: a truncated operand never yields a zero value.
type codeReader struct {
	code    []byte
	strings []string
	pc      int
}

func (r *codeReader) readByte() (byte, error) {
	if r.pc >= len(r.code) {
		return 0, corruptf("unexpected end of bytecode at %04x", r.pc)
	}
	b := r.code[r.pc]
	r.pc++
	return b, nil
}

// ReadNumber reads a variable-length number operand.
func (r *codeReader) ReadNumber() (uint64, error) {
	v, n, err := bincont.ReadVarint(r.code, r.pc)
	if err != nil {
		return 0, corruptf("bad number operand at %04x", r.pc)
	}
	r.pc += n
	return v, nil
}

// ReadString reads a string operand (an index into the string table).
func (r *codeReader) ReadString() (string, error) {
	idx, err := r.ReadNumber()
	if err != nil {
		return "", err
	}
	if idx >= uint64(len(r.strings)) {
		return "", corruptf("string operand index %d out of range at %04x", idx, r.pc)
	}
	return r.strings[idx], nil
}

// ReadStringList reads a string-list operand.
func (r *codeReader) ReadStringList() ([]string, error) {
	count, err := r.ReadNumber()
	if err != nil {
		return nil, err
	}
	if count > uint64(len(r.code)) {
		return nil, corruptf("string list length %d out of range at %04x", count, r.pc)
	}
	list := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// ReadJumpOffset reads a 4-byte signed relative jump offset.
func (r *codeReader) ReadJumpOffset() (int32, error) {
	if r.pc+4 > len(r.code) {
		return 0, corruptf("truncated jump offset at %04x", r.pc)
	}
	off := int32(binary.LittleEndian.Uint32(r.code[r.pc:]))
	r.pc += 4
	return off, nil
}

// ReadOptionals iterates an optional-operand region. read is called with
// each id code and must consume the code's payload; unknown codes are
// corruption.
func (r *codeReader) ReadOptionals(read func(code byte) error) error {
	for {
		code, err := r.readByte()
		if err != nil {
			return err
		}
		if code == optEnd {
			return nil
		}
		if err := read(code); err != nil {
			return err
		}
	}
}

// readMatchOptionals reads the optional region of a match test and resolves
// the (address-part, match-type, comparator) triple against the instance,
// applying the defaults (all, is, i;ascii-casemap) for absent members.
func (r *codeReader) readMatchOptionals(inst *Instance) (*matcher, *AddressPart, error) {
	m := &matcher{comparator: comparatorASCIICasemap, matchType: matchTypeIs}
	part := addressPartAll
	err := r.ReadOptionals(func(code byte) error {
		switch code {
		case OptComparator:
			name, err := r.ReadString()
			if err != nil {
				return err
			}
			cmp := inst.lookupComparator(name)
			if cmp == nil {
				return corruptf("unknown comparator '%s' in bytecode", name)
			}
			m.comparator = cmp
		case OptMatchType:
			name, err := r.ReadString()
			if err != nil {
				return err
			}
			mt := inst.lookupMatchType(name)
			if mt == nil {
				return corruptf("unknown match type '%s' in bytecode", name)
			}
			m.matchType = mt
			if mt.NeedsRelator {
				rel, err := r.ReadString()
				if err != nil {
					return err
				}
				m.relator = rel
			}
		case OptAddressPart:
			name, err := r.ReadString()
			if err != nil {
				return err
			}
			p := inst.lookupAddressPart(name)
			if p == nil {
				return corruptf("unknown address part '%s' in bytecode", name)
			}
			part = p
		default:
			return corruptf("unknown optional operand %d in match test", code)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return m, part, nil
}
