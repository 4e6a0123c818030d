package sieve

import (
	"github.com/d--j/go-sieve/ast"
)

// Validator walks the AST top-down, resolves commands, tests and tags to
// their registered definitions, type-checks arguments and runs the
// per-construct validation hooks of the loaded extensions.
type Validator struct {
	instance *Instance
	tree     *ast.Tree
	errs     *ErrorHandler
	flags    CompileFlags
	script   *Script

	registrations map[string]*CommandRegistration
	pendingTags   map[string][]*tagRegistration

	// extensions required by this script, in require order
	loaded    []*registration
	loadedSet map[ExtensionID]bool

	extContext map[ExtensionID]any
}

// NewValidator prepares validation of tree. The core commands and tests and
// the internal pseudo-extensions are registered immediately; extension
// commands become visible when the script requires them.
func NewValidator(inst *Instance, script *Script, tree *ast.Tree, errs *ErrorHandler, flags CompileFlags) *Validator {
	v := &Validator{
		instance:      inst,
		tree:          tree,
		errs:          errs,
		flags:         flags,
		script:        script,
		registrations: make(map[string]*CommandRegistration),
		pendingTags:   make(map[string][]*tagRegistration),
		loadedSet:     make(map[ExtensionID]bool),
		extContext:    make(map[ExtensionID]any),
	}
	for _, cmd := range coreCommands {
		v.RegisterCommand(cmd, ExtensionNone)
	}
	return v
}

// Run validates the whole tree. It reports whether validation passed
// without errors.
func (v *Validator) Run() bool {
	before := v.errs.ErrorCount()
	for _, cmd := range v.tree.Commands {
		v.validateCommand(cmd)
	}
	return v.errs.ErrorCount() == before
}

// Instance returns the engine instance this validation runs under.
func (v *Validator) Instance() *Instance { return v.instance }

// Flags returns the compile flags of this compilation.
func (v *Validator) Flags() CompileFlags { return v.flags }

func (v *Validator) location(pos ast.Position) *Location {
	return &Location{Script: v.tree.ScriptName, Line: pos.Line, Column: pos.Column}
}

func (v *Validator) errorAt(pos ast.Position, format string, args ...any) {
	v.errs.Error(v.location(pos), format, args...)
}

// WarningAt reports a warning at a script position.
func (v *Validator) WarningAt(pos ast.Position, format string, args ...any) {
	v.errs.Warning(v.location(pos), format, args...)
}

// visible reports whether constructs of ext may be used by this script:
// core constructs always, extension constructs when the script required the
// extension.
func (v *Validator) visible(ext *Extension) bool {
	if ext == nil {
		return true
	}
	reg := v.instance.registry.index[ext.Name]
	if reg == nil {
		return false
	}
	if ext.internal() {
		return true
	}
	return v.loadedSet[reg.id]
}

// extensionID resolves an extension definition to its id in the instance
// registry.
func (v *Validator) extensionID(ext *Extension) ExtensionID {
	if reg := v.instance.registry.index[ext.Name]; reg != nil {
		return reg.id
	}
	return ExtensionNone
}

// RegisterCommand makes a command or test known to this validation run and
// calls its Registered hook. ext identifies the providing extension.
func (v *Validator) RegisterCommand(cmd *Command, ext ExtensionID) *CommandRegistration {
	reg := &CommandRegistration{Command: cmd, ext: ext}
	v.registrations[registrationKey(cmd.Name, cmd.Kind)] = reg
	if cmd.Registered != nil {
		cmd.Registered(v, reg)
	}
	for _, t := range v.pendingTags[cmd.Name] {
		reg.tags = append(reg.tags, t)
	}
	delete(v.pendingTags, cmd.Name)
	return reg
}

func registrationKey(name string, kind CommandKind) string {
	if kind == KindTest {
		return "?" + name
	}
	return name
}

// RegisterExternalTag attaches a tag to another extension's (or the core's)
// command, like the copy extension does for fileinto and redirect. The
// registration is queued when the command is not known yet.
func (v *Validator) RegisterExternalTag(cmdName string, kind CommandKind, tag *Tag, ext ExtensionID) {
	treg := &tagRegistration{tag: tag, ext: ext}
	if reg := v.registrations[registrationKey(cmdName, kind)]; reg != nil {
		reg.tags = append(reg.tags, treg)
		return
	}
	v.pendingTags[cmdName] = append(v.pendingTags[cmdName], treg)
}

// SetExtContext attaches per-extension validation state.
func (v *Validator) SetExtContext(id ExtensionID, ctx any) {
	v.extContext[id] = ctx
}

// ExtContext returns the state attached with SetExtContext.
func (v *Validator) ExtContext(id ExtensionID) any {
	return v.extContext[id]
}

// LoadExtension loads the named extension into this compilation, making its
// commands and tags visible to later commands. It is called by the require
// command; pos is used for diagnostics. The built-in comparator names are
// accepted as no-ops.
func (v *Validator) LoadExtension(name string, pos ast.Position) bool {
	if builtinComparatorNames[name] {
		return true
	}
	reg := v.instance.registry.byName(name)
	if reg == nil || reg.ext == nil || !reg.loaded {
		v.errorAt(pos, "unknown extension '%s'", name)
		return false
	}
	if v.loadedSet[reg.id] {
		return true
	}
	if reg.ext.ValidatorLoad != nil {
		if err := reg.ext.ValidatorLoad(v); err != nil {
			v.errorAt(pos, "cannot use extension '%s' here: %s", name, err)
			return false
		}
	}
	v.loadedSet[reg.id] = true
	v.loaded = append(v.loaded, reg)
	return true
}

// RequiredExtensions returns the extensions this script required, in
// require order. The generator records them as the binary's dependency
// table.
func (v *Validator) RequiredExtensions() []*registration {
	return v.loaded
}

func (v *Validator) lookup(name string, kind CommandKind) *CommandRegistration {
	reg := v.registrations[registrationKey(name, kind)]
	if reg == nil {
		return nil
	}
	if reg.ext != ExtensionNone {
		ereg := v.instance.registry.byID(reg.ext)
		if ereg == nil || !v.loadedSet[reg.ext] {
			return nil
		}
	}
	return reg
}

func (v *Validator) validateCommand(node *ast.Node) {
	reg := v.lookup(node.Identifier, KindCommand)
	if reg == nil {
		if v.lookup(node.Identifier, KindTest) != nil {
			v.errorAt(node.Position, "'%s' is a test, not a command", node.Identifier)
		} else {
			v.errorAt(node.Position, "unknown command '%s'", node.Identifier)
		}
		// look inside the block anyway so its commands get checked too
		for _, sub := range node.Commands {
			v.validateCommand(sub)
		}
		return
	}
	v.validateNode(node, reg)
}

func (v *Validator) validateTest(node *ast.Node) {
	reg := v.lookup(node.Identifier, KindTest)
	if reg == nil {
		v.errorAt(node.Position, "unknown test '%s'", node.Identifier)
		return
	}
	v.validateNode(node, reg)
}

func (v *Validator) validateNode(node *ast.Node, reg *CommandRegistration) {
	cmd := reg.Command
	ctx := &CommandContext{Node: node, Command: cmd, Registration: reg}
	node.Context = ctx

	ok := true
	if cmd.PreValidate != nil && !cmd.PreValidate(v, ctx) {
		ok = false
	}

	v.validateTags(ctx, reg)

	// the positional count is checked after tag resolution; tags may have
	// consumed their value arguments by now
	positionals := ctx.PositionalArguments()
	if len(positionals) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(positionals) > cmd.MaxArgs) {
		if cmd.MinArgs == cmd.MaxArgs {
			v.errorAt(node.Position, "the %s %s requires %d positional argument(s), but %d were found",
				cmd.Name, cmd.Kind, cmd.MinArgs, len(positionals))
		} else {
			v.errorAt(node.Position, "the %s %s was passed an invalid number of positional arguments (%d)",
				cmd.Name, cmd.Kind, len(positionals))
		}
		ok = false
	}

	if len(node.Tests) < cmd.MinTests || (cmd.MaxTests >= 0 && len(node.Tests) > cmd.MaxTests) {
		switch {
		case cmd.MaxTests == 0:
			v.errorAt(node.Position, "the %s %s does not accept tests", cmd.Name, cmd.Kind)
		case cmd.MinTests == 1 && cmd.MaxTests == 1:
			v.errorAt(node.Position, "the %s %s requires exactly one test", cmd.Name, cmd.Kind)
		default:
			v.errorAt(node.Position, "the %s %s requires at least %d test(s)", cmd.Name, cmd.Kind, cmd.MinTests)
		}
		ok = false
	}

	if cmd.AllowsBlock && !node.HasBlock {
		v.errorAt(node.Position, "the %s command requires a command block, but ';' was found", cmd.Name)
		ok = false
	} else if !cmd.AllowsBlock && node.HasBlock {
		v.errorAt(node.Position, "the %s %s does not allow a command block", cmd.Name, cmd.Kind)
		ok = false
	}

	if ok && cmd.Validate != nil {
		cmd.Validate(v, ctx)
	}

	for _, test := range node.Tests {
		v.validateTest(test)
	}
	for _, sub := range node.Commands {
		v.validateCommand(sub)
	}
}

func (v *Validator) validateTags(ctx *CommandContext, reg *CommandRegistration) {
	cur := ast.NewCursor(ctx.Node, 0)
	for {
		arg := cur.Arg()
		if arg == nil {
			return
		}
		if arg.Type != ast.ArgumentTag {
			cur.Next()
			continue
		}
		treg := reg.findTag(v, ctx, arg.Tag)
		if treg == nil {
			v.errorAt(arg.Position, "unknown tagged argument ':%s' for the %s %s",
				arg.Tag, ctx.Command.Name, ctx.Command.Kind)
			cur.Next()
			continue
		}
		arg.Ext = int(treg.ext)
		treg.tag.Validate(v, ctx, cur)
		if cur.Arg() == arg {
			// the tag stayed in the argument list
			cur.Next()
		}
	}
}

// ValidatePositionalArgument enforces the expected kind of the index-th
// positional argument. A single string is accepted where a string list is
// expected. name is the argument's name used in diagnostics.
func (v *Validator) ValidatePositionalArgument(ctx *CommandContext, index int, name string, expected ast.ArgumentType) bool {
	positionals := ctx.PositionalArguments()
	if index >= len(positionals) {
		return false
	}
	arg := positionals[index]
	if arg.Type == expected {
		return true
	}
	if expected == ast.ArgumentStringList && arg.Type == ast.ArgumentString {
		// a string list of length one and a string are interchangeable
		return true
	}
	v.errorAt(arg.Position, "the %s %s expects %s as argument %d (%s), but %s was found",
		ctx.Command.Name, ctx.Command.Kind, expected, index+1, name, arg.Name())
	return false
}
