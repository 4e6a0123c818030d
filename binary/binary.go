// Package binary implements the persistent container format for compiled
// Sieve scripts.
//
// A container is a small header followed by a block table and the block
// payloads. Block 0 holds the bytecode, block 1 the deduplicated string
// table, block 2 the list of extensions the bytecode depends on. Any further
// blocks are per-extension scratch data, addressed through the dependency
// list. Keeping extension data in blocks of their own instead of inlining it
// into the code block is what allows a newer engine to load an older binary.
//
// All integers in the header and block table are little-endian. Variable
// length numbers inside block payloads use the base-128 encoding implemented
// in this package.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Magic identifies a compiled Sieve binary.
const Magic = "PHSIEVE\x00"

// FormatVersion is the container format version this package reads and
// writes. Binaries with an older format version are rejected on load.
const FormatVersion uint16 = 1

// BlockKind tags the content of a block.
type BlockKind uint16

const (
	BlockCode    BlockKind = 1
	BlockStrings BlockKind = 2
	BlockExtDeps BlockKind = 3
	BlockExtData BlockKind = 4
)

// Container flags.
const (
	// FlagDebugInfo marks a binary compiled with debug information.
	FlagDebugInfo uint32 = 1 << 0
	// flagSourceInfo marks that a source-info record follows the block
	// table. It is managed by Marshal/Unmarshal.
	flagSourceInfo uint32 = 1 << 1
)

// ErrCorrupt is returned (wrapped) for any structurally invalid container.
var ErrCorrupt = errors.New("corrupt binary container")

// Block is one container block.
type Block struct {
	Kind BlockKind
	Data []byte
}

// Dependency names one extension the bytecode depends on. The position in
// the dependency list is the ext_index that extension opcodes encode.
type Dependency struct {
	Name    string
	Version uint16
}

// SourceInfo records the script a binary was compiled from, used for
// up-to-date checks of on-disk binaries.
type SourceInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Container is an in-memory compiled-script artifact.
type Container struct {
	CompilerVersion uint16
	Flags           uint32
	Blocks          []Block
	Source          *SourceInfo
}

const headerSize = 8 + 2 + 2 + 4 + 4
const blockEntrySize = 8 + 8 + 2

// BlockData returns the payload of the first block of the given kind.
func (c *Container) BlockData(kind BlockKind) ([]byte, bool) {
	for i := range c.Blocks {
		if c.Blocks[i].Kind == kind {
			return c.Blocks[i].Data, true
		}
	}
	return nil, false
}

// AddBlock appends a block and returns its index.
func (c *Container) AddBlock(kind BlockKind, data []byte) int {
	c.Blocks = append(c.Blocks, Block{Kind: kind, Data: data})
	return len(c.Blocks) - 1
}

// Marshal renders the container into its on-disk form.
func (c *Container) Marshal() []byte {
	flags := c.Flags &^ flagSourceInfo
	var srcInfo []byte
	if c.Source != nil {
		flags |= flagSourceInfo
		srcInfo = AppendVarint(srcInfo, uint64(len(c.Source.Path)))
		srcInfo = append(srcInfo, c.Source.Path...)
		srcInfo = binary.LittleEndian.AppendUint64(srcInfo, uint64(c.Source.ModTime.Unix()))
		srcInfo = binary.LittleEndian.AppendUint64(srcInfo, uint64(c.Source.Size))
	}

	size := headerSize + len(c.Blocks)*blockEntrySize + len(srcInfo)
	offsets := make([]uint64, len(c.Blocks))
	for i := range c.Blocks {
		offsets[i] = uint64(size)
		size += len(c.Blocks[i].Data)
	}

	out := make([]byte, 0, size)
	out = append(out, Magic...)
	out = binary.LittleEndian.AppendUint16(out, FormatVersion)
	out = binary.LittleEndian.AppendUint16(out, c.CompilerVersion)
	out = binary.LittleEndian.AppendUint32(out, flags)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(c.Blocks)))
	for i := range c.Blocks {
		out = binary.LittleEndian.AppendUint64(out, offsets[i])
		out = binary.LittleEndian.AppendUint64(out, uint64(len(c.Blocks[i].Data)))
		out = binary.LittleEndian.AppendUint16(out, uint16(c.Blocks[i].Kind))
	}
	out = append(out, srcInfo...)
	for i := range c.Blocks {
		out = append(out, c.Blocks[i].Data...)
	}
	return out
}

// Unmarshal parses an on-disk container. It fails with an error wrapping
// [ErrCorrupt] for truncated or inconsistent data and with [ErrFormatVersion]
// when the format version of the data is not supported.
func Unmarshal(data []byte) (*Container, error) {
	if len(data) < headerSize || string(data[:8]) != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	format := binary.LittleEndian.Uint16(data[8:])
	if format != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d, need %d", ErrFormatVersion, format, FormatVersion)
	}
	c := &Container{
		CompilerVersion: binary.LittleEndian.Uint16(data[10:]),
		Flags:           binary.LittleEndian.Uint32(data[12:]),
	}
	blockCount := int(binary.LittleEndian.Uint32(data[16:]))
	tableEnd := headerSize + blockCount*blockEntrySize
	if blockCount < 0 || tableEnd > len(data) {
		return nil, fmt.Errorf("%w: truncated block table", ErrCorrupt)
	}
	pos := tableEnd
	if c.Flags&flagSourceInfo != 0 {
		pathLen, n, err := ReadVarint(data, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: source info", ErrCorrupt)
		}
		pos += n
		if pathLen > uint64(len(data)) || pos+int(pathLen)+16 > len(data) {
			return nil, fmt.Errorf("%w: source info", ErrCorrupt)
		}
		path := string(data[pos : pos+int(pathLen)])
		pos += int(pathLen)
		mtime := int64(binary.LittleEndian.Uint64(data[pos:]))
		size := int64(binary.LittleEndian.Uint64(data[pos+8:]))
		c.Source = &SourceInfo{Path: path, ModTime: time.Unix(mtime, 0), Size: size}
		c.Flags &^= flagSourceInfo
	}
	for i := 0; i < blockCount; i++ {
		entry := data[headerSize+i*blockEntrySize:]
		offset := binary.LittleEndian.Uint64(entry)
		length := binary.LittleEndian.Uint64(entry[8:])
		kind := BlockKind(binary.LittleEndian.Uint16(entry[16:]))
		if offset > uint64(len(data)) || length > uint64(len(data)) ||
			offset+length > uint64(len(data)) {
			return nil, fmt.Errorf("%w: block %d out of bounds", ErrCorrupt, i)
		}
		c.Blocks = append(c.Blocks, Block{Kind: kind, Data: data[offset : offset+length]})
	}
	return c, nil
}

// ErrFormatVersion is returned by [Unmarshal] for containers written in a
// format version this package does not read. Such binaries are not migrated,
// the caller is expected to recompile.
var ErrFormatVersion = errors.New("unsupported binary format version")

// Load reads and parses the container stored at path.
func Load(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Save writes the container to path. The file is written to a sibling
// temporary path first and then renamed into place, so concurrent readers
// never observe a partial binary. When update is false and path already
// exists, Save fails with [fs.ErrExist].
func (c *Container) Save(path string, mode fs.FileMode, update bool) error {
	if !update {
		if _, err := os.Lstat(path); err == nil {
			return fmt.Errorf("save %s: %w", path, fs.ErrExist)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, base+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(c.Marshal()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// WriteTo writes the marshaled container to w.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Marshal())
	return int64(n), err
}
