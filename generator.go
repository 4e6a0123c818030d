package sieve

import (
	"encoding/binary"

	"github.com/d--j/go-sieve/ast"
)

// Generator turns a validated AST into bytecode in a binary container. It
// walks the tree once, emitting one opcode per command or test with the
// operands inline, and backpatches the jump offsets of the control
// structures after their targets are known.
type Generator struct {
	instance *Instance
	errs     *ErrorHandler
	script   *Script
	flags    CompileFlags

	code        []byte
	stringTable []string
	stringIndex map[string]int

	deps     []*registration
	depIndex map[ExtensionID]int

	extContext map[ExtensionID]any
}

// NewGenerator prepares code generation for the validated script of v. The
// extensions the script required become the binary's dependency table, in
// require order, which makes compilation deterministic.
func NewGenerator(v *Validator, errs *ErrorHandler) *Generator {
	g := &Generator{
		instance:    v.instance,
		errs:        errs,
		script:      v.script,
		flags:       v.flags,
		stringIndex: make(map[string]int),
		depIndex:    make(map[ExtensionID]int),
		extContext:  make(map[ExtensionID]any),
	}
	for _, reg := range v.RequiredExtensions() {
		g.depIndex[reg.id] = len(g.deps)
		g.deps = append(g.deps, reg)
	}
	for _, reg := range g.deps {
		if reg.ext.GeneratorLoad != nil {
			if err := reg.ext.GeneratorLoad(g); err != nil {
				errs.Error(nil, "internal error: generator setup of extension '%s' failed: %s", reg.ext.Name, err)
			}
		}
	}
	return g
}

// Instance returns the engine instance this generator runs under.
func (g *Generator) Instance() *Instance { return g.instance }

// Flags returns the compile flags of this compilation.
func (g *Generator) Flags() CompileFlags { return g.flags }

// SetExtContext attaches per-extension generation state.
func (g *Generator) SetExtContext(id ExtensionID, ctx any) { g.extContext[id] = ctx }

// ExtContext returns the state attached with SetExtContext.
func (g *Generator) ExtContext(id ExtensionID) any { return g.extContext[id] }

// Error reports a code generation error for node.
func (g *Generator) Error(node *ast.Node, format string, args ...any) {
	g.errs.Error(&Location{Script: g.script.Name(), Line: node.Position.Line, Column: node.Position.Column}, format, args...)
}

// Run generates the whole tree and returns the binary. It returns nil when
// any error was reported.
func (g *Generator) Run(tree *ast.Tree) *Binary {
	before := g.errs.ErrorCount()
	if !g.GenerateBlock(tree.Commands) || g.errs.ErrorCount() != before {
		return nil
	}
	return newCompiledBinary(g)
}

// GenerateBlock emits the commands of one block in order.
func (g *Generator) GenerateBlock(cmds []*ast.Node) bool {
	for _, node := range cmds {
		ctx, _ := node.Context.(*CommandContext)
		if ctx == nil {
			g.Error(node, "internal error: command '%s' was not validated", node.Identifier)
			return false
		}
		if ctx.Command.Generate == nil {
			// commands like require emit no code
			continue
		}
		if !ctx.Command.Generate(g, ctx) {
			return false
		}
	}
	return true
}

// Here returns the current emission address.
func (g *Generator) Here() int { return len(g.code) }

// EmitOpcode emits the opcode byte(s) for op. Core opcodes are one byte;
// extension opcodes are the extension's slot in the dependency table offset
// by [CustomStart], followed by the sub-code.
func (g *Generator) EmitOpcode(op *Opcode) bool {
	if op.Ext == nil {
		g.code = append(g.code, op.Code)
		return true
	}
	ereg := g.instance.registry.index[op.Ext.Name]
	if ereg == nil {
		return false
	}
	slot, ok := g.depIndex[ereg.id]
	if !ok {
		return false
	}
	g.code = append(g.code, CustomStart+byte(slot), op.Code)
	return true
}

// EmitNumber emits a number operand.
func (g *Generator) EmitNumber(n uint64) {
	g.code = appendVarint(g.code, n)
}

// EmitString emits a string operand. Strings are deduplicated into the
// string table; the code stream holds the table index.
func (g *Generator) EmitString(s string) {
	idx, ok := g.stringIndex[s]
	if !ok {
		idx = len(g.stringTable)
		g.stringTable = append(g.stringTable, s)
		g.stringIndex[s] = idx
	}
	g.EmitNumber(uint64(idx))
}

// EmitStringList emits a string-list operand.
func (g *Generator) EmitStringList(list []string) {
	g.EmitNumber(uint64(len(list)))
	for _, s := range list {
		g.EmitString(s)
	}
}

// EmitOptional starts one optional operand with the given id code.
func (g *Generator) EmitOptional(code byte) {
	g.code = append(g.code, code)
}

// EmitOptionalEnd terminates an optional-operand region.
func (g *Generator) EmitOptionalEnd() {
	g.code = append(g.code, optEnd)
}

// EmitJump emits op followed by a 4-byte jump offset placeholder and
// returns the fix-up site for [Generator.ResolveJump].
func (g *Generator) EmitJump(op *Opcode) int {
	g.EmitOpcode(op)
	site := len(g.code)
	g.code = append(g.code, 0, 0, 0, 0)
	return site
}

// ResolveJump backpatches the jump emitted at site to the current address.
func (g *Generator) ResolveJump(site int) {
	off := int32(len(g.code) - (site + 4))
	binary.LittleEndian.PutUint32(g.code[site:], uint32(off))
}

// emitMatchOptionals writes the optional-operand region of a match test.
// Defaulted members are not encoded.
func (g *Generator) emitMatchOptionals(spec *MatchSpec) {
	if spec.Comparator != comparatorASCIICasemap {
		g.EmitOptional(OptComparator)
		g.EmitString(spec.Comparator.Identifier)
	}
	if spec.MatchType != matchTypeIs {
		g.EmitOptional(OptMatchType)
		g.EmitString(spec.MatchType.Identifier)
		if spec.MatchType.NeedsRelator {
			g.EmitString(spec.Relator)
		}
	}
	if spec.AddressPart != nil && spec.AddressPart != addressPartAll {
		g.EmitOptional(OptAddressPart)
		g.EmitString(spec.AddressPart.Identifier)
	}
	g.EmitOptionalEnd()
}

// GenerateArguments emits the positional arguments of a command in order.
func (g *Generator) GenerateArguments(ctx *CommandContext) bool {
	for _, arg := range ctx.Node.Arguments {
		switch arg.Type {
		case ast.ArgumentNumber:
			g.EmitNumber(arg.Number)
		case ast.ArgumentString:
			g.EmitString(arg.Str)
		case ast.ArgumentStringList:
			g.EmitStringList(arg.List)
		case ast.ArgumentTag:
			g.Error(ctx.Node, "internal error: unconsumed tag :%s", arg.Tag)
			return false
		}
	}
	return true
}

// GenerateTestJump emits the code of a test and a conditional jump taken
// when the test's outcome equals jumpIf. Logical tests are expanded into
// short-circuited branches here; there are no runtime and/or/not opcodes.
// The returned fix-up sites all target the jump destination and must be
// resolved by the caller.
func (g *Generator) GenerateTestJump(test *ast.Node, jumpIf bool) ([]int, bool) {
	ctx, _ := test.Context.(*CommandContext)
	if ctx == nil {
		g.Error(test, "internal error: test '%s' was not validated", test.Identifier)
		return nil, false
	}
	switch ctx.Command {
	case tstNot:
		return g.GenerateTestJump(test.Tests[0], !jumpIf)
	case tstAnyof, tstAllof:
		// anyof short-circuits on the first true sub-test, allof on the
		// first false one
		shortOn := ctx.Command == tstAnyof
		var sites []int
		var skips []int
		for i, sub := range test.Tests {
			last := i == len(test.Tests)-1
			if !last && jumpIf != shortOn {
				// a sub-test result of shortOn decides the whole
				// test, but the caller's jump goes the other way:
				// skip past the remaining sub-tests instead
				s, ok := g.GenerateTestJump(sub, shortOn)
				if !ok {
					return nil, false
				}
				skips = append(skips, s...)
				continue
			}
			s, ok := g.GenerateTestJump(sub, jumpIf)
			if !ok {
				return nil, false
			}
			sites = append(sites, s...)
		}
		for _, s := range skips {
			g.ResolveJump(s)
		}
		return sites, true
	}
	if ctx.Command.Generate == nil || !ctx.Command.Generate(g, ctx) {
		return nil, false
	}
	op := opJmpIfFalse
	if jumpIf {
		op = opJmpIfTrue
	}
	return []int{g.EmitJump(op)}, true
}
