package sieve

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func newTestResult(t *testing.T) (*Result, *testExecutor, *ScriptEnv) {
	t.Helper()
	inst := newTestInstance(t)
	exec := &testExecutor{}
	return NewResult(inst), exec, &ScriptEnv{Executor: exec}
}

func TestResultImplicitKeep(t *testing.T) {
	r, exec, env := newTestResult(t)
	if !r.NeedsImplicitKeep() {
		t.Error("empty result does not need implicit keep")
	}
	if status := r.Execute(context.Background(), env, NewErrorHandler(nil, 0), 0); status != StatusOK {
		t.Fatalf("Execute() = %v", status)
	}
	if fmt.Sprint(exec.log) != "[keep]" {
		t.Errorf("actions = %v, want exactly one keep", exec.log)
	}
}

func TestResultDiscardCancelsImplicitKeep(t *testing.T) {
	r, exec, env := newTestResult(t)
	r.AddDiscard()
	if r.NeedsImplicitKeep() {
		t.Error("discard did not cancel the implicit keep")
	}
	if status := r.Execute(context.Background(), env, NewErrorHandler(nil, 0), 0); status != StatusOK {
		t.Fatalf("Execute() = %v", status)
	}
	if fmt.Sprint(exec.log) != "[discard]" {
		t.Errorf("actions = %v, want [discard]", exec.log)
	}
}

func TestResultKeepCancelsDiscard(t *testing.T) {
	r, exec, env := newTestResult(t)
	r.AddDiscard()
	if err := r.AddKeep(nil); err != nil {
		t.Fatal(err)
	}
	if status := r.Execute(context.Background(), env, NewErrorHandler(nil, 0), 0); status != StatusOK {
		t.Fatalf("Execute() = %v", status)
	}
	if fmt.Sprint(exec.log) != "[keep]" {
		t.Errorf("actions = %v, want [keep]", exec.log)
	}
}

func TestResultCommitOrder(t *testing.T) {
	r, exec, env := newTestResult(t)
	if err := r.AddFileInto("Junk", nil, false); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRedirect("a@b.example", false); err != nil {
		t.Fatal(err)
	}
	if status := r.Execute(context.Background(), env, NewErrorHandler(nil, 0), 0); status != StatusOK {
		t.Fatalf("Execute() = %v", status)
	}
	// redirecting actions commit before storage actions
	want := "[redirect:a@b.example fileinto:Junk]"
	if fmt.Sprint(exec.log) != want {
		t.Errorf("actions = %v, want %v", exec.log, want)
	}
}

func TestResultRejectConflicts(t *testing.T) {
	r, _, _ := newTestResult(t)
	if err := r.AddKeep(nil); err != nil {
		t.Fatal(err)
	}
	if err := r.AddReject("nope"); err == nil {
		t.Error("reject after keep did not error")
	}

	r2, _, _ := newTestResult(t)
	if err := r2.AddReject("nope"); err != nil {
		t.Fatal(err)
	}
	if err := r2.AddFileInto("Junk", nil, false); err == nil {
		t.Error("fileinto after reject did not error")
	}
}

func TestResultRedirectLimit(t *testing.T) {
	inst := newTestInstance(t, WithMaxRedirects(2))
	r := NewResult(inst)
	if err := r.AddRedirect("a@example.com", false); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRedirect("a@example.com", false); err != nil {
		t.Fatal(err) // duplicate, collapses
	}
	if err := r.AddRedirect("b@example.com", false); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRedirect("c@example.com", false); err == nil {
		t.Error("third distinct redirect did not hit the policy limit")
	}
}

func TestResultPartialFailureFallsBackToKeep(t *testing.T) {
	r, exec, env := newTestResult(t)
	exec.fail = map[string]error{"fileinto": fmt.Errorf("no such mailbox")}
	if err := r.AddFileInto("Junk", nil, false); err != nil {
		t.Fatal(err)
	}
	status := r.Execute(context.Background(), env, NewErrorHandler(nil, 0), 0)
	if status != StatusFailure {
		t.Errorf("Execute() = %v, want failure", status)
	}
	if fmt.Sprint(exec.log) != "[keep]" {
		t.Errorf("actions = %v, want fallback [keep]", exec.log)
	}
}

func TestResultTotalFailure(t *testing.T) {
	r, exec, env := newTestResult(t)
	exec.fail = map[string]error{"fileinto": fmt.Errorf("disk full"), "keep": fmt.Errorf("disk full")}
	if err := r.AddFileInto("Junk", nil, false); err != nil {
		t.Fatal(err)
	}
	if status := r.Execute(context.Background(), env, NewErrorHandler(nil, 0), 0); status != StatusKeepFailed {
		t.Errorf("Execute() = %v, want keep failed", status)
	}
}

func TestResultPrint(t *testing.T) {
	r, _, _ := newTestResult(t)
	if err := r.AddFileInto("Junk", []string{"\\Seen"}, false); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRedirect("a@b.example", true); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	keep, err := r.Print(&out)
	if err != nil {
		t.Fatal(err)
	}
	if keep {
		t.Error("Print() reported keep-equivalence despite fileinto")
	}
	for _, want := range []string{"fileinto: Junk", "\\Seen", "redirect: a@b.example (copy)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Print() output missing %q:\n%s", want, out.String())
		}
	}
}
