package sieve

import (
	"strings"
)

// ExtensionID is the dense integer id the registry assigns to an extension.
// Ids are assigned in registration order and are never reused within one
// [Instance]; they are remapped through the binary's dependency table when a
// compiled script is persisted.
type ExtensionID int

// ExtensionNone is the id value for "no extension" (core language
// constructs).
const ExtensionNone ExtensionID = -1

// Extension describes one Sieve extension: its capability name, the hooks
// the engine calls during the lifetime of compilations and executions, and
// the opcodes it owns.
//
// Extensions whose name begins with '@' are internal pseudo-extensions (the
// comparator, match-type and address-part machinery). They are hidden from
// the capability string and cannot be named in a require command.
type Extension struct {
	// Name is the capability name used by require.
	Name string
	// Version is recorded in the binary dependency table.
	Version uint16

	// Load is called once when the extension is loaded into an instance.
	// Most extensions register their comparators, match types or address
	// parts here.
	Load func(inst *Instance, id ExtensionID) error
	// ValidatorLoad is called when a compilation requires the extension;
	// it registers the extension's commands, tests and external tags.
	ValidatorLoad func(v *Validator) error
	// GeneratorLoad is called when code generation starts for a script
	// that requires the extension.
	GeneratorLoad func(g *Generator) error
	// BinaryLoad is called when a binary that depends on the extension is
	// created or loaded.
	BinaryLoad func(b *Binary) error
	// InterpreterLoad is called when an interpreter starts executing a
	// binary that depends on the extension.
	InterpreterLoad func(in *Interp) error
	// Unload is called from [Instance.Close].
	Unload func(inst *Instance)

	// Opcodes are the opcodes this extension owns. The position in the
	// slice is the sub-code the generator emits after the extension
	// opcode byte.
	Opcodes []*Opcode
}

func (e *Extension) internal() bool {
	return strings.HasPrefix(e.Name, "@")
}

type registration struct {
	ext      *Extension
	id       ExtensionID
	required bool
	loaded   bool
	enabled  bool
}

// Capability is a named capability string owned by an extension, e.g. the
// notify methods of an enotify implementation. It is hidden while the owning
// extension is disabled.
type Capability struct {
	Name      string
	Extension *Extension
	GetString func() string
}

type extensionRegistry struct {
	regs         []*registration
	index        map[string]*registration
	capabilities map[string]*Capability
}

func newExtensionRegistry() *extensionRegistry {
	return &extensionRegistry{
		index:        make(map[string]*registration),
		capabilities: make(map[string]*Capability),
	}
}

// register binds ext under its name. Registering a name twice binds the new
// definition to the already assigned id.
func (r *extensionRegistry) register(inst *Instance, ext *Extension, load bool) (*registration, error) {
	reg := r.index[ext.Name]
	if reg == nil {
		reg = &registration{id: ExtensionID(len(r.regs))}
		r.regs = append(r.regs, reg)
		r.index[ext.Name] = reg
	}
	reg.ext = ext
	reg.enabled = true
	if load && !reg.loaded {
		if ext.Load != nil {
			if err := ext.Load(inst, reg.id); err != nil {
				return nil, wrapError(ErrorInternal, err, "failed to load '%s' extension support", ext.Name)
			}
		}
		reg.loaded = true
	}
	return reg, nil
}

func (r *extensionRegistry) byName(name string) *registration {
	if strings.HasPrefix(name, "@") {
		return nil
	}
	reg := r.index[name]
	if reg == nil || !reg.enabled {
		return nil
	}
	return reg
}

func (r *extensionRegistry) byID(id ExtensionID) *registration {
	if id < 0 || int(id) >= len(r.regs) {
		return nil
	}
	reg := r.regs[id]
	if !reg.enabled {
		return nil
	}
	return reg
}

func (r *extensionRegistry) listString() string {
	var b strings.Builder
	for _, reg := range r.regs {
		if !reg.enabled || reg.ext == nil || reg.ext.internal() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(reg.ext.Name)
	}
	return b.String()
}

// setEnabled keeps only the named extensions enabled, plus every required
// one. names == nil enables all registered extensions. Unknown names are
// ignored with a warning. Internal pseudo-extensions are never disabled.
func (r *extensionRegistry) setEnabled(inst *Instance, names []string) {
	if names == nil {
		for _, reg := range r.regs {
			r.enable(inst, reg)
		}
		return
	}
	keep := make(map[*registration]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var reg *registration
		if !strings.HasPrefix(name, "@") {
			reg = r.index[name]
		}
		if reg == nil {
			LogWarning("ignored unknown extension '%s' while configuring available extensions", name)
			continue
		}
		keep[reg] = true
	}
	for _, reg := range r.regs {
		if reg.ext != nil && reg.ext.internal() {
			continue
		}
		if keep[reg] || reg.required {
			r.enable(inst, reg)
		} else {
			reg.enabled = false
		}
	}
}

func (r *extensionRegistry) enable(inst *Instance, reg *registration) {
	reg.enabled = true
	if !reg.loaded && reg.ext != nil {
		if reg.ext.Load != nil {
			if err := reg.ext.Load(inst, reg.id); err != nil {
				LogWarning("failed to load '%s' extension support: %s", reg.ext.Name, err)
				return
			}
		}
		reg.loaded = true
	}
}

// Register adds ext to the instance registry and returns its id. With load
// set the extension's Load hook runs immediately. Registration is only
// possible before the instance is frozen by its first compilation or
// execution.
func (i *Instance) Register(ext *Extension, load bool) (ExtensionID, error) {
	if i.frozen {
		return ExtensionNone, newError(ErrorNotPossible, "cannot register extension '%s': instance already in use", ext.Name)
	}
	reg, err := i.registry.register(i, ext, load)
	if err != nil {
		return ExtensionNone, err
	}
	return reg.id, nil
}

// Require registers ext, loads it, and marks it required: required
// extensions stay enabled regardless of [Instance.SetExtensions].
func (i *Instance) Require(ext *Extension) (ExtensionID, error) {
	if i.frozen {
		return ExtensionNone, newError(ErrorNotPossible, "cannot require extension '%s': instance already in use", ext.Name)
	}
	reg, err := i.registry.register(i, ext, true)
	if err != nil {
		return ExtensionNone, err
	}
	reg.required = true
	return reg.id, nil
}

// SetExtensions restricts the set of enabled extensions to names (plus all
// required ones). Passing nil enables every registered extension. Disabling
// does not unregister: the extension keeps its id, but name lookups fail
// until it is enabled again.
func (i *Instance) SetExtensions(names []string) error {
	if i.frozen {
		return newError(ErrorNotPossible, "cannot configure extensions: instance already in use")
	}
	i.registry.setEnabled(i, names)
	return nil
}

// Capabilities returns the space-separated names of the enabled extensions,
// excluding internal pseudo-extensions.
func (i *Instance) Capabilities() string {
	return i.registry.listString()
}

// RegisterCapability registers a named capability string.
func (i *Instance) RegisterCapability(c *Capability) {
	i.registry.capabilities[c.Name] = c
}

// GetCapability returns the capability string registered under name, or ""
// when it is unknown or its owning extension is disabled.
func (i *Instance) GetCapability(name string) string {
	c := i.registry.capabilities[name]
	if c == nil || c.GetString == nil {
		return ""
	}
	if c.Extension != nil {
		reg := i.registry.index[c.Extension.Name]
		if reg == nil || !reg.enabled {
			return ""
		}
	}
	return c.GetString()
}
