package sieve

import (
	"strings"
	"testing"
)

func TestRegistryIDs(t *testing.T) {
	inst := newTestInstance(t)
	ext := &Extension{Name: "test-ext", Version: 1}
	id, err := inst.Register(ext, true)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id < 0 {
		t.Fatalf("Register returned id %d", id)
	}

	// re-registering the same name binds to the same id
	again, err := inst.Register(&Extension{Name: "test-ext", Version: 2}, true)
	if err != nil {
		t.Fatalf("Register again: %v", err)
	}
	if again != id {
		t.Errorf("re-registration assigned id %d, want %d", again, id)
	}

	// ids are dense and monotone
	other, err := inst.Register(&Extension{Name: "other-ext"}, false)
	if err != nil {
		t.Fatalf("Register other: %v", err)
	}
	if other != id+1 {
		t.Errorf("next id = %d, want %d", other, id+1)
	}
}

func TestRegistryLoadHook(t *testing.T) {
	loaded := 0
	ext := &Extension{
		Name: "hooked",
		Load: func(inst *Instance, id ExtensionID) error {
			loaded++
			return nil
		},
	}
	inst := newTestInstance(t)
	if _, err := inst.Register(ext, true); err != nil {
		t.Fatal(err)
	}
	if _, err := inst.Register(ext, true); err != nil {
		t.Fatal(err)
	}
	if loaded != 1 {
		t.Errorf("Load hook ran %d times, want 1", loaded)
	}
}

func TestCapabilitiesString(t *testing.T) {
	inst := newTestInstance(t)
	caps := inst.Capabilities()
	for _, want := range []string{"fileinto", "reject", "envelope", "vacation", "imap4flags"} {
		if !strings.Contains(caps, want) {
			t.Errorf("Capabilities() = %q missing %s", caps, want)
		}
	}
	if strings.Contains(caps, "@") {
		t.Errorf("Capabilities() = %q lists internal pseudo-extensions", caps)
	}
}

func TestSetExtensions(t *testing.T) {
	inst := newTestInstance(t)
	required := &Extension{Name: "must-have"}
	if _, err := inst.Require(required); err != nil {
		t.Fatal(err)
	}
	if err := inst.SetExtensions([]string{"fileinto", "no-such-ext"}); err != nil {
		t.Fatal(err)
	}
	caps := inst.Capabilities()
	if !strings.Contains(caps, "fileinto") {
		t.Errorf("Capabilities() = %q, fileinto missing", caps)
	}
	if strings.Contains(caps, "reject") {
		t.Errorf("Capabilities() = %q, reject should be disabled", caps)
	}
	// required extensions cannot be disabled
	if !strings.Contains(caps, "must-have") {
		t.Errorf("Capabilities() = %q, required extension was disabled", caps)
	}

	// disabling does not unregister: SetExtensions(nil) re-enables reject
	if err := inst.SetExtensions(nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(inst.Capabilities(), "reject") {
		t.Error("SetExtensions(nil) did not re-enable everything")
	}
}

func TestDisabledExtensionNotRequirable(t *testing.T) {
	inst := newTestInstance(t, WithExtensions("fileinto"))
	errs := NewErrorHandler(nil, 0)
	if bin, _ := inst.Compile(NewScript("t", "t", []byte("require \"reject\";\nkeep;")), errs, 0); bin != nil {
		t.Error("script required a disabled extension")
	}
}

func TestFrozenInstance(t *testing.T) {
	inst := newTestInstance(t)
	compileString(t, inst, "keep;")

	if _, err := inst.Register(&Extension{Name: "late"}, true); KindOfError(err) != ErrorNotPossible {
		t.Errorf("Register after freeze = %v, want not possible", err)
	}
	if _, err := inst.Require(&Extension{Name: "late"}); KindOfError(err) != ErrorNotPossible {
		t.Errorf("Require after freeze = %v, want not possible", err)
	}
	if err := inst.SetExtensions(nil); KindOfError(err) != ErrorNotPossible {
		t.Errorf("SetExtensions after freeze = %v, want not possible", err)
	}
}

func TestCapabilityRegistration(t *testing.T) {
	inst := newTestInstance(t)
	inst.RegisterCapability(&Capability{
		Name:      "notify-method-capability",
		Extension: RejectExtension,
		GetString: func() string { return "mailto" },
	})
	if got := inst.GetCapability("notify-method-capability"); got != "mailto" {
		t.Errorf("GetCapability() = %q, want mailto", got)
	}
	if got := inst.GetCapability("unknown"); got != "" {
		t.Errorf("GetCapability(unknown) = %q, want empty", got)
	}

	// hidden while the owning extension is disabled
	if err := inst.SetExtensions([]string{"fileinto"}); err != nil {
		t.Fatal(err)
	}
	if got := inst.GetCapability("notify-method-capability"); got != "" {
		t.Errorf("GetCapability() = %q for disabled owner, want empty", got)
	}
}
