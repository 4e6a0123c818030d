package sieve

import (
	"context"
	"io"
)

// Multiscript executes an ordered chain of compiled scripts against one
// message. All scripts share one result set, which is committed once at the
// end of the chain; downstream scripts observe whether the upstream result
// is still keep-equivalent.
type Multiscript struct {
	instance *Instance
	message  Message
	env      *ScriptEnv
	result   *Result

	status ExecStatus
	keep   bool
	active bool

	testStream io.Writer

	discardHandled bool
}

// StartExecute begins a multiscript run.
func (i *Instance) StartExecute(msg Message, env *ScriptEnv) *Multiscript {
	i.freeze()
	return &Multiscript{
		instance: i,
		message:  msg,
		env:      env,
		result:   NewResult(i),
		status:   StatusOK,
		keep:     true,
		active:   true,
	}
}

// StartTest begins a multiscript dry run; each script's pending result is
// printed to out instead of being committed at the end.
func (i *Instance) StartTest(msg Message, env *ScriptEnv, out io.Writer) *Multiscript {
	m := i.StartExecute(msg, env)
	m.testStream = out
	return m
}

// Run executes the next script of the chain. It reports whether the chain
// is still active: a script that delivers, discards or fails ends the
// chain.
func (m *Multiscript) Run(ctx context.Context, bin *Binary, execErrs *ErrorHandler, flags ExecuteFlags) bool {
	if !m.active {
		return false
	}
	if execErrs == nil {
		execErrs = NewErrorHandler(nil, 0)
	}

	m.status = m.instance.run(ctx, bin, m.result, m.message, m.env, execErrs, flags)
	switch m.status {
	case StatusOK:
		m.keep = m.result.NeedsImplicitKeep()
		if m.testStream != nil {
			if _, err := m.result.Print(m.testStream); err != nil {
				m.status = StatusFailure
				m.keep = false
			}
		}
	default:
		m.keep = false
	}

	if !m.keep || m.status != StatusOK {
		m.active = false
		return false
	}
	return true
}

// Status returns the chain status so far.
func (m *Multiscript) Status() ExecStatus { return m.status }

// WillDiscard reports whether finishing now would silently discard the
// message: the chain ended successfully with a discard in force.
func (m *Multiscript) WillDiscard() bool {
	return !m.active && m.status == StatusOK && m.result.NeedsDiscard()
}

// RunDiscard executes a discard script: a final script that runs only when
// the chain is about to discard the message, with the implicit keep
// deferred so that the discard script's own actions decide the outcome.
func (m *Multiscript) RunDiscard(ctx context.Context, bin *Binary, execErrs *ErrorHandler, flags ExecuteFlags) {
	if !m.WillDiscard() || m.discardHandled {
		return
	}
	m.discardHandled = true
	if execErrs == nil {
		execErrs = NewErrorHandler(nil, 0)
	}
	m.status = m.instance.run(ctx, bin, m.result, m.message, m.env, execErrs, flags|ExecuteDeferKeep)
	if m.status == StatusFailure {
		m.status = StatusKeepFailed
	}
	m.active = false
}

// Tempfail aborts the chain without committing anything.
func (m *Multiscript) Tempfail(actionErrs *ErrorHandler) ExecStatus {
	if m.active {
		m.status = StatusTempFailure
		m.active = false
	}
	return m.status
}

// Finish commits the shared result set and returns the final status.
func (m *Multiscript) Finish(ctx context.Context, actionErrs *ErrorHandler, flags ExecuteFlags) ExecStatus {
	if actionErrs == nil {
		actionErrs = NewErrorHandler(nil, 0)
	}
	switch m.status {
	case StatusOK:
		if m.testStream != nil {
			return StatusOK
		}
		m.status = m.result.Execute(ctx, m.env, actionErrs, flags)
	case StatusFailure:
		switch m.result.ImplicitKeep(ctx, m.env, actionErrs) {
		case StatusOK:
		case StatusTempFailure:
			m.status = StatusTempFailure
		default:
			m.status = StatusKeepFailed
		}
	}
	m.active = false
	return m.status
}
