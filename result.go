package sieve

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// Action is one pending side effect recorded during interpretation. Actions
// do not execute immediately; the result set commits them in a fixed order
// after the interpreter returned successfully.
type Action interface {
	// ActionName is the stable name used in dumps and test output.
	ActionName() string
	describe() string
}

// KeepAction stores the message in the user's default mailbox. Implicit
// marks the keep the engine adds when a script produced no other delivery.
type KeepAction struct {
	Flags    []string
	Implicit bool
}

func (a *KeepAction) ActionName() string { return "keep" }
func (a *KeepAction) describe() string {
	if len(a.Flags) > 0 {
		return fmt.Sprintf("keep (flags%s)", flagSuffix(a.Flags))
	}
	return "keep"
}

// FileIntoAction stores the message in a specific mailbox.
type FileIntoAction struct {
	Mailbox string
	Flags   []string
	Copy    bool
}

func (a *FileIntoAction) ActionName() string { return "fileinto" }
func (a *FileIntoAction) describe() string {
	s := fmt.Sprintf("fileinto: %s", a.Mailbox)
	if len(a.Flags) > 0 {
		s += fmt.Sprintf(" (flags%s)", flagSuffix(a.Flags))
	}
	if a.Copy {
		s += " (copy)"
	}
	return s
}

// RedirectAction forwards the message to another address.
type RedirectAction struct {
	Address string
	Copy    bool
}

func (a *RedirectAction) ActionName() string { return "redirect" }
func (a *RedirectAction) describe() string {
	s := fmt.Sprintf("redirect: %s", a.Address)
	if a.Copy {
		s += " (copy)"
	}
	return s
}

// RejectAction refuses delivery with a reason.
type RejectAction struct {
	Reason string
}

func (a *RejectAction) ActionName() string { return "reject" }
func (a *RejectAction) describe() string   { return fmt.Sprintf("reject: %q", a.Reason) }

// VacationAction sends an automatic reply.
type VacationAction struct {
	Response *VacationResponse
}

func (a *VacationAction) ActionName() string { return "vacation" }
func (a *VacationAction) describe() string {
	return fmt.Sprintf("vacation: %q", a.Response.Subject)
}

// DiscardAction silently drops the message. It only takes effect when no
// keep or fileinto succeeded and no redirect produced a delivery.
type DiscardAction struct{}

func (a *DiscardAction) ActionName() string { return "discard" }
func (a *DiscardAction) describe() string   { return "discard" }

func flagSuffix(flags []string) string {
	s := ""
	for _, f := range flags {
		s += " " + f
	}
	return s
}

// Result accumulates the pending actions of one or more executions (the
// multiscript mode chains several scripts over one result set) and commits
// them.
type Result struct {
	instance *Instance
	actions  []Action
	discard  bool

	// set during commit
	executed         bool
	executedDelivery bool
}

// NewResult returns an empty result set.
func NewResult(inst *Instance) *Result {
	return &Result{instance: inst}
}

// Actions returns the pending actions in record order, without the discard
// flag and the implicit keep.
func (r *Result) Actions() []Action { return r.actions }

func (r *Result) countKind(name string) int {
	n := 0
	for _, a := range r.actions {
		if a.ActionName() == name {
			n++
		}
	}
	return n
}

func (r *Result) hasDeliveryAction() bool {
	for _, a := range r.actions {
		switch act := a.(type) {
		case *KeepAction, *RejectAction:
			return true
		case *FileIntoAction:
			// :copy does not cancel the implicit keep
			if !act.Copy {
				return true
			}
		case *RedirectAction:
			if !act.Copy {
				return true
			}
		}
	}
	return false
}

// NeedsDiscard reports whether a discard is in force and no pending action
// delivers the message.
func (r *Result) NeedsDiscard() bool {
	return r.discard && !r.hasDeliveryAction()
}

// NeedsImplicitKeep reports whether the result currently calls for the
// implicit keep: no delivery-producing action is pending and the message
// was not discarded.
func (r *Result) NeedsImplicitKeep() bool {
	return !r.discard && !r.hasDeliveryAction()
}

func (r *Result) checkActionLimit() error {
	max := r.instance.maxActions
	if max > 0 && len(r.actions) >= max {
		return RuntimeErrorf("total number of actions exceeds policy limit (max %d)", max)
	}
	return nil
}

func (r *Result) rejectConflict(name string) error {
	if r.countKind("reject") > 0 {
		return RuntimeErrorf("%s action conflicts with an earlier reject action", name)
	}
	return nil
}

// AddKeep records an explicit keep.
func (r *Result) AddKeep(flags []string) error {
	if err := r.rejectConflict("keep"); err != nil {
		return err
	}
	for _, a := range r.actions {
		if k, ok := a.(*KeepAction); ok && !k.Implicit {
			// duplicate keeps collapse
			return nil
		}
	}
	if err := r.checkActionLimit(); err != nil {
		return err
	}
	r.actions = append(r.actions, &KeepAction{Flags: flags})
	return nil
}

// AddFileInto records a fileinto. Multiple fileinto actions to the same
// mailbox collapse to one.
func (r *Result) AddFileInto(mailbox string, flags []string, copy bool) error {
	if err := r.rejectConflict("fileinto"); err != nil {
		return err
	}
	for _, a := range r.actions {
		if f, ok := a.(*FileIntoAction); ok && f.Mailbox == mailbox {
			return nil
		}
	}
	if err := r.checkActionLimit(); err != nil {
		return err
	}
	r.actions = append(r.actions, &FileIntoAction{Mailbox: mailbox, Flags: flags, Copy: copy})
	return nil
}

// AddRedirect records a redirect. Duplicate addresses collapse; the number
// of redirects is capped by the instance policy.
func (r *Result) AddRedirect(address string, copy bool) error {
	for _, a := range r.actions {
		if rd, ok := a.(*RedirectAction); ok && rd.Address == address {
			return nil
		}
	}
	max := r.instance.maxRedirects
	if max > 0 && r.countKind("redirect") >= max {
		return RuntimeErrorf("number of redirect actions exceeds policy limit (max %d)", max)
	}
	if err := r.checkActionLimit(); err != nil {
		return err
	}
	r.actions = append(r.actions, &RedirectAction{Address: address, Copy: copy})
	return nil
}

// AddReject records a reject. Reject conflicts with every storing delivery
// in the same result.
func (r *Result) AddReject(reason string) error {
	for _, a := range r.actions {
		switch a.(type) {
		case *KeepAction, *FileIntoAction:
			return RuntimeErrorf("reject action conflicts with an earlier %s action", a.ActionName())
		case *RejectAction:
			return nil
		}
	}
	if err := r.checkActionLimit(); err != nil {
		return err
	}
	r.actions = append(r.actions, &RejectAction{Reason: reason})
	return nil
}

// AddVacation records a vacation response. At most one vacation action may
// be pending.
func (r *Result) AddVacation(response *VacationResponse) error {
	if r.countKind("vacation") > 0 {
		return RuntimeErrorf("duplicate vacation action")
	}
	if err := r.checkActionLimit(); err != nil {
		return err
	}
	r.actions = append(r.actions, &VacationAction{Response: response})
	return nil
}

// AddDiscard records a discard. A discard is cancelled by any keep or
// fileinto in the same result.
func (r *Result) AddDiscard() {
	r.discard = true
}

// Executed reports whether any action of the result was committed.
func (r *Result) Executed() bool { return r.executed }

// ExecutedDelivery reports whether a committed action delivered the message
// somewhere.
func (r *Result) ExecutedDelivery() bool { return r.executedDelivery }

// Execute commits the pending actions: first the actions that redirect the
// message (redirect, reject, vacation), then the storage actions (fileinto,
// keep), then — only when nothing delivered the message — the discard. When
// the implicit keep is called for it is committed as the storage phase
// (unless deferred via [ExecuteDeferKeep]).
//
// A failing action does not stop the remaining storage actions. When an
// action failed and no storage action succeeded, the implicit keep is
// attempted as a fallback so that mail is not lost; the status degrades to
// [StatusKeepFailed] only when that fallback fails too.
func (r *Result) Execute(ctx context.Context, env *ScriptEnv, errs *ErrorHandler, flags ExecuteFlags) ExecStatus {
	var merr *multierror.Error
	noDelivery := flags&ExecuteNoDelivery != 0

	commit := func(name string, delivery bool, do func() error) bool {
		if noDelivery {
			// dry mode: treat every action as performed without
			// calling the sinks
			return true
		}
		r.executed = true
		if err := do(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", name, err))
			errs.Error(nil, "failed to execute %s action: %s", name, err)
			return false
		}
		if delivery {
			r.executedDelivery = true
		}
		return true
	}

	// phase one: actions that redirect the message
	for _, a := range r.actions {
		switch act := a.(type) {
		case *RedirectAction:
			commit("redirect", true, func() error { return env.Executor.Redirect(ctx, act.Address) })
		case *RejectAction:
			commit("reject", true, func() error { return env.Executor.Reject(ctx, act.Reason) })
		case *VacationAction:
			if act.Response.Handle != "" && env.duplicate(act.Response.Handle) {
				// a response for this handle went out recently
				continue
			}
			commit("vacation", false, func() error { return env.Executor.Vacation(ctx, act.Response) })
		}
	}

	// phase two: storage actions
	kept := false
	for _, a := range r.actions {
		switch act := a.(type) {
		case *FileIntoAction:
			if commit("fileinto", true, func() error { return env.Executor.FileInto(ctx, act.Mailbox, act.Flags) }) {
				kept = true
			}
		case *KeepAction:
			if commit("keep", true, func() error { return env.Executor.Keep(ctx, "", act.Flags) }) {
				kept = true
			}
		}
	}
	if r.NeedsImplicitKeep() && flags&ExecuteDeferKeep == 0 {
		if commit("implicit keep", true, func() error { return env.Executor.Keep(ctx, "", nil) }) {
			kept = true
		}
	}

	// phase three: discard, unless something delivered the message
	if r.discard && !kept && !r.executedDelivery {
		commit("discard", false, func() error { return env.Executor.Discard(ctx) })
	}

	if merr == nil {
		return StatusOK
	}
	if kept {
		return StatusFailure
	}
	// every storing action failed; fall back to the implicit keep to
	// avoid losing the message
	if flags&ExecuteDeferKeep == 0 && !noDelivery {
		if err := env.Executor.Keep(ctx, "", nil); err == nil {
			return StatusFailure
		}
	}
	return StatusKeepFailed
}

// ImplicitKeep commits only the implicit keep. It is used when a script
// failed at runtime after actions may already have run.
func (r *Result) ImplicitKeep(ctx context.Context, env *ScriptEnv, errs *ErrorHandler) ExecStatus {
	r.executed = true
	if err := env.Executor.Keep(ctx, "", nil); err != nil {
		errs.Error(nil, "failed to execute implicit keep: %s", err)
		return StatusKeepFailed
	}
	r.executedDelivery = true
	return StatusOK
}

// Print writes a human-readable description of the pending actions to w, as
// used by the test mode. It returns whether the result is keep-equivalent.
func (r *Result) Print(w io.Writer) (bool, error) {
	if _, err := fmt.Fprintln(w, "Performed actions:"); err != nil {
		return false, err
	}
	if len(r.actions) == 0 && !r.discard {
		if _, err := fmt.Fprintln(w, "  (none)"); err != nil {
			return false, err
		}
	}
	for _, a := range r.actions {
		if _, err := fmt.Fprintf(w, " * %s\n", a.describe()); err != nil {
			return false, err
		}
	}
	if r.discard {
		if _, err := fmt.Fprintln(w, " * discard"); err != nil {
			return false, err
		}
	}
	keep := r.NeedsImplicitKeep()
	if keep {
		if _, err := fmt.Fprintln(w, "\nImplicit keep:\n * keep"); err != nil {
			return false, err
		}
	}
	return keep, nil
}
