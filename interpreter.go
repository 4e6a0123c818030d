package sieve

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RuntimeEnv bundles everything one execution works with. Its lifetime is
// one run of one binary against one message.
type RuntimeEnv struct {
	Instance *Instance
	Binary   *Binary
	Interp   *Interp
	Message  Message
	Env      *ScriptEnv
	Result   *Result
	Errors   *ErrorHandler
	Flags    ExecuteFlags
}

// Location returns the diagnostic location for runtime messages: the binary
// source, without line information.
func (renv *RuntimeEnv) Location() *Location {
	return &Location{Script: renv.Binary.Source()}
}

// errStop makes the dispatch loop terminate successfully.
var errStop = errors.New("sieve: stop")

type corruptError struct {
	msg string
}

func (e *corruptError) Error() string { return "corrupt bytecode: " + e.msg }

func corruptf(format string, args ...any) error {
	return &corruptError{msg: fmt.Sprintf(format, args...)}
}

type runtimeError struct {
	temp bool
	msg  string
}

func (e *runtimeError) Error() string { return e.msg }

// RuntimeErrorf returns a recoverable runtime error. The execution fails
// with [StatusFailure] and the implicit keep is performed.
func RuntimeErrorf(format string, args ...any) error {
	return &runtimeError{msg: fmt.Sprintf(format, args...)}
}

// TempErrorf returns a temporary runtime error: a resource or
// infrastructure problem. The execution fails with [StatusTempFailure] and
// nothing is committed.
func TempErrorf(format string, args ...any) error {
	return &runtimeError{temp: true, msg: fmt.Sprintf(format, args...)}
}

// Interp executes the bytecode of one binary. There is no operand stack:
// opcodes consume their operands inline from the code stream. The only
// interpreter registers are the program counter and the test result.
type Interp struct {
	codeReader

	binary  *Binary
	ctx     context.Context
	started time.Time
	budget  time.Duration

	testResult bool

	extContext map[ExtensionID]any
}

func newInterp(ctx context.Context, b *Binary) *Interp {
	in := &Interp{
		codeReader: codeReader{code: b.code, strings: b.strings},
		binary:     b,
		ctx:        ctx,
		started:    time.Now(),
		budget:     b.instance.maxCPUTime,
		extContext: make(map[ExtensionID]any),
	}
	for _, reg := range b.extSlots {
		if reg != nil && reg.ext != nil && reg.ext.InterpreterLoad != nil {
			if err := reg.ext.InterpreterLoad(in); err != nil {
				LogWarning("interpreter setup of extension '%s' failed: %s", reg.ext.Name, err)
			}
		}
	}
	return in
}

// Context returns the execution's context. Opcodes performing blocking
// script-environment calls pass it along.
func (in *Interp) Context() context.Context { return in.ctx }

// TestResult returns the test-result register.
func (in *Interp) TestResult() bool { return in.testResult }

// SetTestResult sets the test-result register. Test opcodes call this; the
// following conditional jump consumes it.
func (in *Interp) SetTestResult(r bool) { in.testResult = r }

// SetExtContext attaches per-extension runtime state (e.g. the internal
// flag set of an imap4flags implementation).
func (in *Interp) SetExtContext(id ExtensionID, ctx any) { in.extContext[id] = ctx }

// ExtContext returns the state attached with SetExtContext.
func (in *Interp) ExtContext(id ExtensionID) any { return in.extContext[id] }

func (in *Interp) jumpRel(off int32) error {
	npc := in.pc + int(off)
	if npc < 0 || npc > len(in.code) {
		return corruptf("jump target %d out of program", npc)
	}
	in.pc = npc
	return nil
}

// checkResources samples the clock and the cancellation token. It runs once
// per opcode dispatch; a single opcode is indivisible.
func (in *Interp) checkResources() error {
	if in.budget > 0 && time.Since(in.started) > in.budget {
		return TempErrorf("script exceeded its CPU time limit (%s)", in.budget)
	}
	if in.ctx != nil {
		if err := in.ctx.Err(); err != nil {
			return TempErrorf("execution canceled: %s", err)
		}
	}
	return nil
}

// nextOpcode reads and resolves the opcode byte at the program counter.
func (in *Interp) nextOpcode() (*Opcode, error) {
	return in.binary.opcodeAt(&in.codeReader)
}

// run is the dispatch loop. Falling off the end of the program is a
// successful termination, like an implicit stop.
func (in *Interp) run(renv *RuntimeEnv) ExecStatus {
	for in.pc < len(in.code) {
		err := in.checkResources()
		if err == nil {
			var op *Opcode
			if op, err = in.nextOpcode(); err == nil {
				if op.Execute == nil {
					err = corruptf("opcode %s cannot be executed", op.Mnemonic)
				} else {
					err = op.Execute(renv)
				}
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, errStop) {
			return StatusOK
		}
		var ce *corruptError
		if errors.As(err, &ce) {
			renv.Errors.Critical(renv.Location(), "%s", ce.msg)
			return StatusBinCorrupt
		}
		var re *runtimeError
		if errors.As(err, &re) && re.temp {
			renv.Errors.Error(renv.Location(), "%s", re.msg)
			return StatusTempFailure
		}
		renv.Errors.Error(renv.Location(), "runtime error: %s", err)
		return StatusFailure
	}
	return StatusOK
}

// Usage returns the resource usage of the execution so far.
func (in *Interp) Usage() ResourceUsage {
	return ResourceUsage{CPUTime: time.Since(in.started)}
}
