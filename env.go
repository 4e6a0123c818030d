package sieve

import (
	"context"
	"time"
)

// EnvelopeField selects one field of the message envelope.
type EnvelopeField int

const (
	EnvelopeFrom EnvelopeField = iota
	EnvelopeTo
	EnvelopeOrigTo
	EnvelopeAuth
)

func (f EnvelopeField) String() string {
	switch f {
	case EnvelopeFrom:
		return "from"
	case EnvelopeTo:
		return "to"
	case EnvelopeOrigTo:
		return "orig_to"
	case EnvelopeAuth:
		return "auth"
	}
	return "unknown"
}

// Message is the engine's view of the message being filtered. The [mailmsg]
// package provides an implementation over a parsed mail message; hosts with
// their own message store implement this interface directly.
//
// Implementations may block (e.g. fetch headers lazily from a backend);
// the interpreter calls them synchronously between opcodes.
type Message interface {
	// PhysicalSize returns the size of the message as stored, in bytes.
	PhysicalSize() (uint64, error)
	// HeaderValues returns the values of all header fields with the given
	// name, in message order. With decoded set, RFC 2047 encoded words are
	// decoded. A missing header yields an empty slice and no error.
	HeaderValues(name string, decoded bool) ([]string, error)
	// Envelope returns the addresses of the given envelope field. The auth
	// field holds the authenticated submission identity, if any.
	Envelope(field EnvelopeField) []string
}

// VacationResponse carries the parameters of a vacation action to the
// action backend.
type VacationResponse struct {
	Reason    string
	Subject   string
	From      string
	Handle    string
	Mime      bool
	SendDelay time.Duration
}

// ActionExecutor is the set of action sinks the result set commits into.
// Every method may block; an error fails the action (the result set decides
// whether that degrades the execution status).
type ActionExecutor interface {
	Keep(ctx context.Context, mailbox string, flags []string) error
	FileInto(ctx context.Context, mailbox string, flags []string) error
	Redirect(ctx context.Context, address string) error
	Reject(ctx context.Context, reason string) error
	Discard(ctx context.Context) error
	Vacation(ctx context.Context, response *VacationResponse) error
}

// ScriptEnv is the script environment: the per-recipient state and the
// action sinks used during result execution.
type ScriptEnv struct {
	// User is the name of the user whose script runs.
	User string
	// PostmasterAddress is the address error notifications are sent from.
	PostmasterAddress string
	// Executor commits the actions of the result set. It must be set for
	// Execute; Test runs do not need it.
	Executor ActionExecutor
	// DuplicateCheck reports whether a response with the given tracking id
	// was already sent recently; it also records the id. Used by the
	// vacation extension. A nil check allows every response.
	DuplicateCheck func(id string) bool
}

func (e *ScriptEnv) duplicate(id string) bool {
	if e.DuplicateCheck == nil {
		return false
	}
	return e.DuplicateCheck(id)
}

// ResourceUsage accumulates the measurable cost of executions of a script.
type ResourceUsage struct {
	CPUTime time.Duration
}

// Add accumulates other into u.
func (u *ResourceUsage) Add(other ResourceUsage) {
	u.CPUTime += other.CPUTime
}

// Summary returns a loggable one-line description.
func (u *ResourceUsage) Summary() string {
	if u.CPUTime == 0 {
		return "no usage recorded"
	}
	return "cpu time = " + u.CPUTime.String()
}
