package binary

import (
	"encoding/hex"
	"fmt"
	"io"
)

func blockKindName(k BlockKind) string {
	switch k {
	case BlockCode:
		return "CODE"
	case BlockStrings:
		return "STRINGS"
	case BlockExtDeps:
		return "EXT_DEPS"
	case BlockExtData:
		return "EXT_DATA"
	}
	return fmt.Sprintf("UNKNOWN(%d)", k)
}

// Hexdump writes a raw dump of the container to w: the header fields
// followed by a hex dump of every block.
func (c *Container) Hexdump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "format version: %d\ncompiler version: 0x%04x\nflags: 0x%08x\nblocks: %d\n",
		FormatVersion, c.CompilerVersion, c.Flags, len(c.Blocks))
	if err != nil {
		return err
	}
	if c.Source != nil {
		_, err = fmt.Fprintf(w, "source: %s (size %d, mtime %s)\n",
			c.Source.Path, c.Source.Size, c.Source.ModTime.UTC().Format("2006-01-02 15:04:05"))
		if err != nil {
			return err
		}
	}
	for i := range c.Blocks {
		b := &c.Blocks[i]
		if _, err = fmt.Fprintf(w, "\nblock %d: %s (%d bytes)\n", i, blockKindName(b.Kind), len(b.Data)); err != nil {
			return err
		}
		if _, err = io.WriteString(w, hex.Dump(b.Data)); err != nil {
			return err
		}
	}
	return nil
}
