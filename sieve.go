// Package sieve implements the core of a Sieve (RFC 5228) mail filtering
// engine: a compiler from Sieve source to a persistent bytecode binary, and
// an interpreter running such binaries against a message to produce a set
// of mail actions.
//
// The pipeline has four stages. The parser turns source text into an AST,
// the validator resolves commands and tags against the loaded extensions
// and type-checks arguments, the generator emits bytecode into a binary
// container, and the interpreter executes a binary against a [Message],
// accumulating actions in a [Result] that is committed through the
// [ActionExecutor] of the [ScriptEnv].
//
// An [Instance] carries the extension registry and the engine limits.
// Configure it (register extensions, restrict the extension set) right
// after [New]; the first compilation or execution freezes the
// configuration, which keeps the registry free of locks on the hot path.
package sieve

import (
	"context"
	"io"
	"time"
)

// CompileFlags adjust one compilation.
type CompileFlags uint32

const (
	// CompileNoEnvelope rejects scripts using the envelope test.
	CompileNoEnvelope CompileFlags = 1 << 0
	// CompileNoGlobalVariables rejects scripts using global variables (a
	// variables extension consults it; the core carries the flag).
	CompileNoGlobalVariables CompileFlags = 1 << 1
	// CompileNoRunLog disables the user run log for executions of the
	// compiled script.
	CompileNoRunLog CompileFlags = 1 << 2
	// CompileDebug compiles with debug information.
	CompileDebug CompileFlags = 1 << 3
	// CompileSameVersion makes [Instance.Open] treat a cached binary from
	// another compiler version as stale.
	CompileSameVersion CompileFlags = 1 << 4
)

// ExecuteFlags adjust one execution.
type ExecuteFlags uint32

const (
	// ExecuteNoDelivery records actions without committing them.
	ExecuteNoDelivery ExecuteFlags = 1 << 0
	// ExecuteLogResult logs the committed result through [LogWarning].
	ExecuteLogResult ExecuteFlags = 1 << 1
	// ExecuteDeferKeep leaves the implicit keep pending instead of
	// committing it, for result sets shared across scripts.
	ExecuteDeferKeep ExecuteFlags = 1 << 2
)

// Instance is one Sieve engine: the extension registry, the capability
// table and the configured limits. An instance may serve many compilations
// and executions concurrently once it is configured.
type Instance struct {
	registry *extensionRegistry

	comparators  map[string]*Comparator
	matchTypes   map[string]*MatchType
	addressParts map[string]*AddressPart

	comparatorExt  ExtensionID
	matchTypeExt   ExtensionID
	addressPartExt ExtensionID

	maxScriptSize int64
	maxActions    int
	maxRedirects  int
	maxCPUTime    time.Duration
	debug         bool

	frozen bool
}

// coreExtensions are pre-registered with every instance: first the
// internal pseudo-extensions, then the bundled extensions.
var coreExtensions = []*Extension{
	comparatorExtension, matchTypeExtension, addressPartExtension,
	FileIntoExtension, RejectExtension, EnvelopeExtension,
	CopyExtension, RelationalExtension, ComparatorASCIINumericExtension,
	Imap4FlagsExtension, VacationExtension,
}

// New creates an engine instance with the bundled extensions registered
// and enabled.
func New(opts ...Option) (*Instance, error) {
	inst := &Instance{
		registry:      newExtensionRegistry(),
		comparators:   make(map[string]*Comparator),
		matchTypes:    make(map[string]*MatchType),
		addressParts:  make(map[string]*AddressPart),
		maxScriptSize: 1 << 20,
		maxActions:    32,
		maxRedirects:  4,
		maxCPUTime:    30 * time.Second,
	}
	for _, ext := range coreExtensions {
		if _, err := inst.registry.register(inst, ext, true); err != nil {
			return nil, err
		}
	}
	for _, o := range opts {
		if err := o(inst); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Close unloads every registered extension. The instance must not be used
// afterwards.
func (i *Instance) Close() {
	for _, reg := range i.registry.regs {
		if reg.loaded && reg.ext != nil && reg.ext.Unload != nil {
			reg.ext.Unload(i)
		}
		reg.loaded = false
	}
}

// freeze makes the configuration immutable. Called on the first
// compilation or execution; afterwards Register, Require and SetExtensions
// fail, which is what makes the registry safe for concurrent reads without
// a lock.
func (i *Instance) freeze() {
	i.frozen = true
}

// Debug reports whether the instance was created with [WithDebug].
func (i *Instance) Debug() bool { return i.debug }

// MaxRedirects returns the configured redirect limit per execution.
func (i *Instance) MaxRedirects() int { return i.maxRedirects }

// MaxActions returns the configured action limit per execution.
func (i *Instance) MaxActions() int { return i.maxActions }

// MaxScriptSize returns the configured script size limit in bytes.
func (i *Instance) MaxScriptSize() int64 { return i.maxScriptSize }

func (i *Instance) excessiveResourceUsage(u *ResourceUsage) bool {
	return i.maxCPUTime > 0 && u.CPUTime > i.maxCPUTime
}

// Compile runs the parse, validate and generate stages over script. The
// handler receives the diagnostics; a nil handler counts silently. The
// returned error carries [ErrorNotValid] when the script has errors.
func (i *Instance) Compile(script *Script, errs *ErrorHandler, flags CompileFlags) (*Binary, error) {
	i.freeze()
	if errs == nil {
		errs = NewErrorHandler(nil, 0)
	}
	if i.maxScriptSize > 0 && script.Size() > i.maxScriptSize {
		errs.Error(&Location{Script: script.Name()}, "script is too large (max %d bytes)", i.maxScriptSize)
		return nil, newError(ErrorNotValid, "script '%s' is too large", script.Name())
	}

	tree, err := Parse(script, errs)
	if err != nil {
		errs.Error(&Location{Script: script.Name()}, "parse failed")
		return nil, err
	}

	v := NewValidator(i, script, tree, errs, flags)
	if !v.Run() {
		errs.Error(&Location{Script: script.Name()}, "validation failed")
		return nil, newError(ErrorNotValid, "validation of script '%s' failed", script.Name())
	}

	g := NewGenerator(v, errs)
	bin := g.Run(tree)
	if bin == nil {
		errs.Error(&Location{Script: script.Name()}, "code generation failed")
		return nil, newError(ErrorNotValid, "code generation for script '%s' failed", script.Name())
	}
	if i.debug {
		LogWarning("script '%s' from %s successfully compiled", script.Name(), script.Location())
	}
	return bin, nil
}

// CompileFile opens the script stored at path and compiles it.
func (i *Instance) CompileFile(path, name string, errs *ErrorHandler, flags CompileFlags) (*Binary, error) {
	script, err := OpenScriptFile(path, name)
	if err != nil {
		if errs != nil {
			if KindOfError(err) == ErrorNotFound {
				errs.Error(&Location{Script: name}, "script not found")
			} else {
				errs.Error(&Location{Script: name}, "failed to open script: %s", err)
			}
		}
		return nil, err
	}
	return i.Compile(script, errs, flags)
}

// Open returns an executable binary for the script at path: the cached
// binary next to the script when it exists and is up to date, a fresh
// compilation otherwise. A fresh compilation is saved back to the cache
// path; failure to save is not fatal.
func (i *Instance) Open(path, name string, errs *ErrorHandler, flags CompileFlags) (*Binary, error) {
	i.freeze()
	script, err := OpenScriptFile(path, name)
	if err != nil {
		if errs != nil {
			errs.Error(&Location{Script: name}, "script not found")
		}
		return nil, err
	}

	var bin *Binary
	if cached, err := LoadBinary(i, script.BinaryPath()); err == nil {
		usage := cached.ResourceUsage()
		if !i.excessiveResourceUsage(&usage) && cached.UpToDate(script, flags) {
			bin = cached
		} else if i.debug {
			LogWarning("script binary %s is not up-to-date", script.BinaryPath())
		}
	}

	if bin == nil {
		bin, err = i.Compile(script, errs, flags)
		if err != nil {
			return nil, err
		}
		if err := bin.Save("", true); err != nil {
			LogWarning("failed to save script binary %s: %s", script.BinaryPath(), err)
		}
	}

	if err := bin.CheckExecutable(); err != nil {
		if errs != nil {
			errs.Error(&Location{Script: name}, "%s", err)
		}
		return nil, err
	}
	return bin, nil
}

// run interprets bin against the message, filling result.
func (i *Instance) run(ctx context.Context, bin *Binary, result *Result, msg Message, env *ScriptEnv, errs *ErrorHandler, flags ExecuteFlags) ExecStatus {
	interp := newInterp(ctx, bin)
	renv := &RuntimeEnv{
		Instance: i,
		Binary:   bin,
		Interp:   interp,
		Message:  msg,
		Env:      env,
		Result:   result,
		Errors:   errs,
		Flags:    flags,
	}
	status := interp.run(renv)
	bin.RecordResourceUsage(interp.Usage())
	return status
}

// Execute runs the compiled script against a message and commits the
// resulting actions. Runtime errors of the script degrade to
// [StatusFailure] with the implicit keep performed; nothing is committed
// for [StatusTempFailure] and [StatusBinCorrupt].
func (i *Instance) Execute(ctx context.Context, bin *Binary, msg Message, env *ScriptEnv,
	execErrs, actionErrs *ErrorHandler, flags ExecuteFlags) ExecStatus {
	i.freeze()
	if execErrs == nil {
		execErrs = NewErrorHandler(nil, 0)
	}
	if actionErrs == nil {
		actionErrs = execErrs
	}

	result := NewResult(i)
	status := i.run(ctx, bin, result, msg, env, execErrs, flags)
	switch status {
	case StatusOK:
		status = result.Execute(ctx, env, actionErrs, flags)
	case StatusFailure:
		// recoverable script failure: guarantee non-loss of mail
		switch result.ImplicitKeep(ctx, env, actionErrs) {
		case StatusOK:
			status = StatusFailure
		case StatusTempFailure:
			status = StatusTempFailure
		default:
			status = StatusKeepFailed
		}
	}
	if flags&ExecuteLogResult != 0 {
		LogWarning("executed script from %s: %s, %d action(s)", bin.Source(), status, len(result.Actions()))
	}
	return status
}

// Test is the dry-run mode: the script runs normally, but instead of
// committing, the pending result set is printed to out.
func (i *Instance) Test(ctx context.Context, bin *Binary, msg Message, env *ScriptEnv,
	errs *ErrorHandler, out io.Writer) ExecStatus {
	i.freeze()
	if errs == nil {
		errs = NewErrorHandler(nil, 0)
	}
	result := NewResult(i)
	status := i.run(ctx, bin, result, msg, env, errs, ExecuteNoDelivery)
	if status != StatusOK {
		return status
	}
	if _, err := result.Print(out); err != nil {
		errs.Error(nil, "failed to print result: %s", err)
		return StatusFailure
	}
	return StatusOK
}
