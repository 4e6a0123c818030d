package sieve

import (
	"context"
	"fmt"
	"testing"
)

func TestMultiscriptChain(t *testing.T) {
	inst := newTestInstance(t)
	first := compileString(t, inst, "if header :contains \"Subject\" \"no-match\" { discard; }")
	second := compileString(t, inst, "require \"fileinto\";\nfileinto \"Junk\";")

	exec := &testExecutor{}
	env := &ScriptEnv{Executor: exec}
	m := inst.StartExecute(simpleMessage(), env)

	if !m.Run(context.Background(), first, nil, 0) {
		t.Fatal("chain stopped after the first (keep-equivalent) script")
	}
	if m.Run(context.Background(), second, nil, 0) {
		t.Error("chain continued after a delivering script")
	}
	if len(exec.log) != 0 {
		t.Errorf("actions committed before Finish: %v", exec.log)
	}
	if status := m.Finish(context.Background(), nil, 0); status != StatusOK {
		t.Fatalf("Finish() = %v", status)
	}
	if fmt.Sprint(exec.log) != "[fileinto:Junk]" {
		t.Errorf("actions = %v, want [fileinto:Junk]", exec.log)
	}
}

func TestMultiscriptImplicitKeepAtEnd(t *testing.T) {
	inst := newTestInstance(t)
	noop := compileString(t, inst, "if false { discard; }")

	exec := &testExecutor{}
	env := &ScriptEnv{Executor: exec}
	m := inst.StartExecute(simpleMessage(), env)
	if !m.Run(context.Background(), noop, nil, 0) {
		t.Fatal("keep-equivalent script ended the chain")
	}
	if status := m.Finish(context.Background(), nil, 0); status != StatusOK {
		t.Fatalf("Finish() = %v", status)
	}
	if fmt.Sprint(exec.log) != "[keep]" {
		t.Errorf("actions = %v, want [keep]", exec.log)
	}
}

func TestMultiscriptWillDiscard(t *testing.T) {
	inst := newTestInstance(t)
	discarding := compileString(t, inst, "discard;")

	exec := &testExecutor{}
	env := &ScriptEnv{Executor: exec}
	m := inst.StartExecute(simpleMessage(), env)
	if m.Run(context.Background(), discarding, nil, 0) {
		t.Error("chain continued after discard")
	}
	if !m.WillDiscard() {
		t.Error("WillDiscard() = false after a discard-only chain")
	}

	// the discard script rescues the message
	rescue := compileString(t, inst, "require \"fileinto\";\nfileinto \"Trash\";")
	m.RunDiscard(context.Background(), rescue, nil, 0)
	if status := m.Finish(context.Background(), nil, 0); status != StatusOK {
		t.Fatalf("Finish() = %v", status)
	}
	if fmt.Sprint(exec.log) != "[fileinto:Trash]" {
		t.Errorf("actions = %v, want [fileinto:Trash]", exec.log)
	}
}

func TestMultiscriptTempfail(t *testing.T) {
	inst := newTestInstance(t)
	exec := &testExecutor{}
	env := &ScriptEnv{Executor: exec}
	m := inst.StartExecute(simpleMessage(), env)
	if status := m.Tempfail(nil); status != StatusTempFailure {
		t.Errorf("Tempfail() = %v", status)
	}
	if len(exec.log) != 0 {
		t.Errorf("Tempfail committed actions: %v", exec.log)
	}
}
