package binary

import (
	"encoding/binary"
	"fmt"
)

// AppendVarint appends the base-128 encoding of v to dst. The high bit of
// each byte is the continuation bit. It returns the new dst like append does.
func AppendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// ReadVarint decodes a base-128 number from data starting at off. It returns
// the value and the number of bytes consumed. A truncated or over-long
// encoding fails with an error wrapping [ErrCorrupt].
func ReadVarint(data []byte, off int) (uint64, int, error) {
	var v uint64
	var shift uint
	for n := 0; ; n++ {
		if off+n >= len(data) {
			return 0, 0, fmt.Errorf("%w: truncated number", ErrCorrupt)
		}
		if shift >= 64 {
			return 0, 0, fmt.Errorf("%w: number too wide", ErrCorrupt)
		}
		b := data[off+n]
		if shift == 63 && b&0x7f > 1 {
			return 0, 0, fmt.Errorf("%w: number too wide", ErrCorrupt)
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, n + 1, nil
		}
		shift += 7
	}
}

// EncodeStrings renders a string-table block: the entry count followed by a
// length-prefixed entry per string.
func EncodeStrings(strs []string) []byte {
	var out []byte
	out = AppendVarint(out, uint64(len(strs)))
	for _, s := range strs {
		out = AppendVarint(out, uint64(len(s)))
		out = append(out, s...)
	}
	return out
}

// DecodeStrings parses a string-table block.
func DecodeStrings(data []byte) ([]string, error) {
	count, n, err := ReadVarint(data, 0)
	if err != nil {
		return nil, err
	}
	pos := n
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: string table entry count", ErrCorrupt)
	}
	strs := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		l, n, err := ReadVarint(data, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if l > uint64(len(data)) || pos+int(l) > len(data) {
			return nil, fmt.Errorf("%w: truncated string table entry", ErrCorrupt)
		}
		strs = append(strs, string(data[pos:pos+int(l)]))
		pos += int(l)
	}
	return strs, nil
}

// EncodeDependencies renders the extension-dependency block.
func EncodeDependencies(deps []Dependency) []byte {
	var out []byte
	out = AppendVarint(out, uint64(len(deps)))
	for _, d := range deps {
		out = AppendVarint(out, uint64(len(d.Name)))
		out = append(out, d.Name...)
		out = binary.LittleEndian.AppendUint16(out, d.Version)
	}
	return out
}

// DecodeDependencies parses the extension-dependency block.
func DecodeDependencies(data []byte) ([]Dependency, error) {
	count, n, err := ReadVarint(data, 0)
	if err != nil {
		return nil, err
	}
	pos := n
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: dependency count", ErrCorrupt)
	}
	deps := make([]Dependency, 0, count)
	for i := uint64(0); i < count; i++ {
		l, n, err := ReadVarint(data, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if l > uint64(len(data)) || pos+int(l)+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated dependency entry", ErrCorrupt)
		}
		name := string(data[pos : pos+int(l)])
		pos += int(l)
		version := binary.LittleEndian.Uint16(data[pos:])
		pos += 2
		deps = append(deps, Dependency{Name: name, Version: version})
	}
	return deps, nil
}

// EncodeExtData renders a per-extension data block: the index of the owning
// extension in the dependency list followed by the payload.
func EncodeExtData(depIndex int, payload []byte) []byte {
	var out []byte
	out = AppendVarint(out, uint64(depIndex))
	return append(out, payload...)
}

// DecodeExtData splits a per-extension data block into the dependency index
// and the payload.
func DecodeExtData(data []byte) (int, []byte, error) {
	idx, n, err := ReadVarint(data, 0)
	if err != nil {
		return 0, nil, err
	}
	return int(idx), data[n:], nil
}
