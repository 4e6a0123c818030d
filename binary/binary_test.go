package binary

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1<<14 - 1, 1 << 14, 1<<32 + 5, ^uint64(0)}
	for _, v := range values {
		data := AppendVarint(nil, v)
		got, n, err := ReadVarint(data, 0)
		if err != nil {
			t.Fatalf("ReadVarint(%d): %v", v, err)
		}
		if got != v || n != len(data) {
			t.Errorf("ReadVarint() = %d (%d bytes), want %d (%d bytes)", got, n, v, len(data))
		}
	}
}

func TestVarintCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", []byte{0x80}},
		{"truncated long", []byte{0xff, 0xff, 0xff}},
		{"too wide", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ReadVarint(tt.data, 0); !errors.Is(err, ErrCorrupt) {
				t.Errorf("ReadVarint() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestStringsRoundTrip(t *testing.T) {
	tests := [][]string{
		{},
		{""},
		{"one"},
		{"one", "two", "", "long string with spaces and \x00 bytes"},
	}
	for _, strs := range tests {
		got, err := DecodeStrings(EncodeStrings(strs))
		if err != nil {
			t.Fatalf("DecodeStrings(%q): %v", strs, err)
		}
		if len(got) != len(strs) {
			t.Fatalf("DecodeStrings(%q) = %q", strs, got)
		}
		for i := range strs {
			if got[i] != strs[i] {
				t.Errorf("entry %d = %q, want %q", i, got[i], strs[i])
			}
		}
	}
}

func TestStringsCorrupt(t *testing.T) {
	data := EncodeStrings([]string{"one", "two"})
	for cut := 1; cut < len(data); cut++ {
		if _, err := DecodeStrings(data[:cut]); !errors.Is(err, ErrCorrupt) {
			t.Errorf("DecodeStrings(truncated at %d) error = %v, want ErrCorrupt", cut, err)
		}
	}
}

func TestDependenciesRoundTrip(t *testing.T) {
	deps := []Dependency{{Name: "fileinto", Version: 1}, {Name: "vacation", Version: 3}}
	got, err := DecodeDependencies(EncodeDependencies(deps))
	if err != nil {
		t.Fatalf("DecodeDependencies: %v", err)
	}
	if !reflect.DeepEqual(got, deps) {
		t.Errorf("DecodeDependencies() = %v, want %v", got, deps)
	}
}

func TestExtDataRoundTrip(t *testing.T) {
	data := EncodeExtData(3, []byte{1, 2, 3})
	idx, payload, err := DecodeExtData(data)
	if err != nil {
		t.Fatalf("DecodeExtData: %v", err)
	}
	if idx != 3 || !bytes.Equal(payload, []byte{1, 2, 3}) {
		t.Errorf("DecodeExtData() = %d, %v", idx, payload)
	}
}

func testContainer() *Container {
	c := &Container{CompilerVersion: 0x0100, Flags: FlagDebugInfo}
	c.AddBlock(BlockCode, []byte{1, 2, 3, 4})
	c.AddBlock(BlockStrings, EncodeStrings([]string{"INBOX", "Junk"}))
	c.AddBlock(BlockExtDeps, EncodeDependencies([]Dependency{{Name: "fileinto", Version: 1}}))
	c.AddBlock(BlockExtData, EncodeExtData(0, []byte{9}))
	c.Source = &SourceInfo{Path: "test.sieve", ModTime: time.Unix(1700000000, 0), Size: 42}
	return c
}

func TestContainerRoundTrip(t *testing.T) {
	c := testContainer()
	got, err := Unmarshal(c.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("container mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	data := testContainer().Marshal()
	tests := []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"empty", func(d []byte) []byte { return nil }},
		{"bad magic", func(d []byte) []byte { d[0] = 'X'; return d }},
		{"short header", func(d []byte) []byte { return d[:10] }},
		{"truncated table", func(d []byte) []byte { return d[:24] }},
		{"block out of bounds", func(d []byte) []byte { return d[:len(d)-2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mangled := tt.mangle(append([]byte(nil), data...))
			if _, err := Unmarshal(mangled); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Unmarshal() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestUnmarshalRejectsNewerFormat(t *testing.T) {
	data := testContainer().Marshal()
	data[8] = 0xff // format version
	if _, err := Unmarshal(data); !errors.Is(err, ErrFormatVersion) {
		t.Errorf("Unmarshal() error = %v, want ErrFormatVersion", err)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.svbin")
	c := testContainer()
	if err := c.Save(path, 0600, false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("container mismatch (-want +got):\n%s", diff)
	}

	// without update an existing file is not overwritten
	if err := c.Save(path, 0600, false); !errors.Is(err, fs.ErrExist) {
		t.Errorf("Save(update=false) error = %v, want fs.ErrExist", err)
	}
	if err := c.Save(path, 0600, true); err != nil {
		t.Errorf("Save(update=true) error = %v", err)
	}
}

func TestHexdump(t *testing.T) {
	var buf bytes.Buffer
	if err := testContainer().Hexdump(&buf); err != nil {
		t.Fatalf("Hexdump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"block 0: CODE", "block 1: STRINGS", "block 2: EXT_DEPS", "block 3: EXT_DATA", "test.sieve"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("Hexdump output missing %q:\n%s", want, out)
		}
	}
}
