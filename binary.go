package sieve

import (
	"errors"
	"os"
	"time"

	bincont "github.com/d--j/go-sieve/binary"
)

// CompilerVersion is recorded in every binary this engine writes. Binaries
// from another compiler version are recompiled when the caller demands
// version identity.
const CompilerVersion uint16 = 0x0100

// Binary is one compiled script: the bytecode, the string table and the
// extension dependency table, resolved against an engine instance.
type Binary struct {
	instance *Instance

	code    []byte
	strings []string
	deps    []bincont.Dependency
	// extSlots maps a dependency-table index to the instance registration
	// of that extension; nil when the extension is not registered here.
	extSlots []*registration

	container *bincont.Container
	script    *Script
	path      string
	modTime   time.Time

	rusage ResourceUsage

	extContext map[ExtensionID]any
}

func newCompiledBinary(g *Generator) *Binary {
	b := &Binary{
		instance:   g.instance,
		code:       g.code,
		strings:    g.stringTable,
		script:     g.script,
		extContext: make(map[ExtensionID]any),
	}
	var flags uint32
	if g.flags&CompileDebug != 0 {
		flags |= bincont.FlagDebugInfo
	}
	c := &bincont.Container{CompilerVersion: CompilerVersion, Flags: flags}
	c.AddBlock(bincont.BlockCode, b.code)
	c.AddBlock(bincont.BlockStrings, bincont.EncodeStrings(b.strings))
	for _, reg := range g.deps {
		b.deps = append(b.deps, bincont.Dependency{Name: reg.ext.Name, Version: reg.ext.Version})
		b.extSlots = append(b.extSlots, reg)
	}
	c.AddBlock(bincont.BlockExtDeps, bincont.EncodeDependencies(b.deps))
	if !g.script.ModTime().IsZero() {
		c.Source = &bincont.SourceInfo{
			Path:    g.script.Location(),
			ModTime: g.script.ModTime(),
			Size:    g.script.Size(),
		}
	}
	b.container = c
	b.loadHooks()
	return b
}

// LoadBinary reads a compiled script from path and resolves it against the
// instance. The caller still has to check [Binary.CheckExecutable] before
// executing it.
func LoadBinary(inst *Instance, path string) (*Binary, error) {
	inst.freeze()
	st, err := os.Stat(path)
	if err != nil {
		return nil, wrapError(osErrorKind(err), err, "binary %s", path)
	}
	c, err := bincont.Load(path)
	if err != nil {
		kind := ErrorNotValid
		if !errors.Is(err, bincont.ErrCorrupt) && !errors.Is(err, bincont.ErrFormatVersion) {
			kind = osErrorKind(err)
		}
		return nil, wrapError(kind, err, "binary %s", path)
	}
	b := &Binary{
		instance:   inst,
		container:  c,
		path:       path,
		modTime:    st.ModTime(),
		extContext: make(map[ExtensionID]any),
	}
	code, ok := c.BlockData(bincont.BlockCode)
	if !ok {
		return nil, newError(ErrorNotValid, "binary %s: no code block", path)
	}
	b.code = code
	strs, ok := c.BlockData(bincont.BlockStrings)
	if !ok {
		return nil, newError(ErrorNotValid, "binary %s: no string table", path)
	}
	if b.strings, err = bincont.DecodeStrings(strs); err != nil {
		return nil, wrapError(ErrorNotValid, err, "binary %s", path)
	}
	depsBlock, ok := c.BlockData(bincont.BlockExtDeps)
	if !ok {
		return nil, newError(ErrorNotValid, "binary %s: no extension dependency table", path)
	}
	if b.deps, err = bincont.DecodeDependencies(depsBlock); err != nil {
		return nil, wrapError(ErrorNotValid, err, "binary %s", path)
	}
	b.extSlots = make([]*registration, len(b.deps))
	for i, dep := range b.deps {
		b.extSlots[i] = inst.registry.index[dep.Name]
	}
	b.loadHooks()
	return b, nil
}

func (b *Binary) loadHooks() {
	for _, reg := range b.extSlots {
		if reg != nil && reg.ext != nil && reg.ext.BinaryLoad != nil {
			if err := reg.ext.BinaryLoad(b); err != nil {
				LogWarning("binary setup of extension '%s' failed: %s", reg.ext.Name, err)
			}
		}
	}
}

// Instance returns the engine instance the binary is bound to.
func (b *Binary) Instance() *Instance { return b.instance }

// Script returns the script the binary was compiled from in this process,
// or nil for a binary loaded from disk.
func (b *Binary) Script() *Script { return b.script }

// Source describes where the binary came from, for diagnostics.
func (b *Binary) Source() string {
	if b.path != "" {
		return b.path
	}
	if b.script != nil {
		return b.script.Location()
	}
	return "(in-memory script)"
}

// Path returns the file the binary was loaded from or saved to, or "".
func (b *Binary) Path() string { return b.path }

// SetExtContext attaches per-extension state to the binary.
func (b *Binary) SetExtContext(id ExtensionID, ctx any) { b.extContext[id] = ctx }

// ExtContext returns the state attached with SetExtContext.
func (b *Binary) ExtContext(id ExtensionID) any { return b.extContext[id] }

// RecordResourceUsage accumulates the resource usage of one execution into
// the binary. It reports whether the accumulated usage is still considered
// acceptable under the instance's limits.
func (b *Binary) RecordResourceUsage(usage ResourceUsage) bool {
	b.rusage.Add(usage)
	return !b.instance.excessiveResourceUsage(&b.rusage)
}

// ResourceUsage returns the accumulated resource usage of the binary.
func (b *Binary) ResourceUsage() ResourceUsage { return b.rusage }

// Save writes the binary to path, atomically, with mode 0600. An empty path
// uses the path the binary was loaded from, or the binary path derived from
// the script it was compiled from. With update false an existing file is
// left untouched and Save fails with an exists error.
func (b *Binary) Save(path string, update bool) error {
	if path == "" {
		path = b.path
	}
	if path == "" && b.script != nil {
		path = b.script.BinaryPath()
	}
	if path == "" {
		return newError(ErrorNotPossible, "binary has no storage path")
	}
	if err := b.container.Save(path, 0600, update); err != nil {
		return wrapError(osErrorKind(err), err, "save binary %s", path)
	}
	b.path = path
	b.modTime = time.Now()
	return nil
}

// UpToDate reports whether the binary is still current for script: the
// script must not have been modified after the binary was written and all
// referenced extensions must still be loaded. With [CompileSameVersion] the
// binary additionally has to be written by this compiler version.
func (b *Binary) UpToDate(script *Script, flags CompileFlags) bool {
	if flags&CompileSameVersion != 0 && b.container.CompilerVersion != CompilerVersion {
		return false
	}
	if src := b.container.Source; src != nil && script != nil {
		if script.Size() != src.Size {
			return false
		}
		if script.ModTime().Unix() != src.ModTime.Unix() &&
			(b.modTime.IsZero() || script.ModTime().After(b.modTime)) {
			return false
		}
	}
	for _, reg := range b.extSlots {
		if reg == nil || reg.ext == nil || !reg.loaded {
			return false
		}
	}
	return true
}

// CheckExecutable verifies that every extension the binary depends on is
// currently registered and enabled. It returns a not-valid error naming the
// first missing extension otherwise.
func (b *Binary) CheckExecutable() error {
	for i, dep := range b.deps {
		reg := b.extSlots[i]
		if reg == nil || reg.ext == nil || !reg.enabled {
			return newError(ErrorNotValid, "binary %s requires unavailable extension '%s'", b.Source(), dep.Name)
		}
	}
	return nil
}
