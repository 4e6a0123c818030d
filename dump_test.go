package sieve

import (
	"bytes"
	"strings"
	"testing"
)

func TestDump(t *testing.T) {
	inst := newTestInstance(t)
	bin := compileString(t, inst, "require \"fileinto\";\n"+
		"if size :over 1K { fileinto \"big\"; } else { redirect \"a@b.example\"; }\nstop;")
	var out bytes.Buffer
	if err := bin.Dump(&out); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	dump := out.String()
	for _, want := range []string{
		"Extensions:", "fileinto",
		"String table:", `"big"`, `"a@b.example"`,
		"SIZE_OVER", "JMP_IF_FALSE", "FILEINTO", "REDIRECT", "JMP", "STOP",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}

func TestHexdumpBinary(t *testing.T) {
	inst := newTestInstance(t)
	bin := compileString(t, inst, "keep;")
	var out bytes.Buffer
	if err := bin.Hexdump(&out); err != nil {
		t.Fatalf("Hexdump: %v", err)
	}
	if !strings.Contains(out.String(), "block 0: CODE") {
		t.Errorf("hexdump missing code block:\n%s", out.String())
	}
}
