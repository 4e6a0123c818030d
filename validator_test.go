package sieve

import (
	"bytes"
	"strings"
	"testing"
)

// compileError compiles src and returns the diagnostics; it fails the test
// when the script unexpectedly compiles.
func compileError(t *testing.T, src string) string {
	t.Helper()
	inst := newTestInstance(t)
	var diag bytes.Buffer
	errs := NewErrorHandler(&diag, 0)
	bin, err := inst.Compile(NewScript("test", "test", []byte(src)), errs, 0)
	if bin != nil || err == nil {
		t.Fatalf("Compile(%q) unexpectedly succeeded", src)
	}
	if KindOfError(err) != ErrorNotValid {
		t.Errorf("Compile(%q) error kind = %v, want not valid", src, KindOfError(err))
	}
	return diag.String()
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		expect string
	}{
		{"unknown command", "frobnicate;", "unknown command 'frobnicate'"},
		{"unknown test", "if frob { keep; }", "unknown test 'frob'"},
		{"test as command", "size :over 1;", "'size' is a test, not a command"},
		{"extension not required", "fileinto \"Junk\";", "unknown command 'fileinto'"},
		{"require not first", "keep;\nrequire \"fileinto\";", "at the beginning of the file"},
		{"require nested", "if true { require \"fileinto\"; }", "top level"},
		{"unknown extension", "require \"no-such-ext\";", "unknown extension 'no-such-ext'"},
		{"wrong argument type", "if size :over \"big\" { keep; }", "number"},
		{"missing size tag", "if size 1K { keep; }", ":under or the :over"},
		{"duplicate size tag", "if size :over :under 1K { keep; }", "exactly one of the ':under' or ':over'"},
		{"unknown tag", "keep :frobnicate;", "unknown tagged argument ':frobnicate'"},
		{"missing block", "if true;", "requires a command block"},
		{"unexpected block", "keep { stop; }", "does not allow a command block"},
		{"elsif without if", "elsif true { keep; }", "must directly follow"},
		{"else without if", "keep;\nelse { keep; }", "must directly follow"},
		{"too many arguments", "keep \"INBOX\";", "positional argument"},
		{"unknown comparator", "if header :comparator \"i;bogus\" \"a\" \"b\" { keep; }", "unknown comparator"},
		{"count without relational", "if header :count \"ge\" \"a\" \"1\" { keep; }", "unknown tagged argument ':count'"},
		{"count without relator", "require \"relational\";\nif header :count \"bogus\" \"a\" \"1\" { keep; }", "relator"},
		{"numeric comparator with contains", "require \"comparator-i;ascii-numeric\";\nif header :contains :comparator \"i;ascii-numeric\" \"a\" \"1\" { keep; }", "does not support"},
		{"copy without extension", "require \"fileinto\";\nfileinto :copy \"Junk\";", "unknown tagged argument ':copy'"},
		{"bad redirect address", "redirect \"not an address\";", "invalid"},
		{"unknown envelope part", "require \"envelope\";\nif envelope :is \"bcc\" \"x\" { keep; }", "unknown envelope part"},
		{"duplicate match type", "if header :is :contains \"a\" \"b\" { keep; }", "multiple match-type tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := compileError(t, tt.src)
			if !strings.Contains(diag, tt.expect) {
				t.Errorf("diagnostics do not mention %q:\n%s", tt.expect, diag)
			}
		})
	}
}

func TestValidationReportsMultipleErrors(t *testing.T) {
	diag := compileError(t, "frobnicate;\nfrobzulate;\n")
	if !strings.Contains(diag, "frobnicate") || !strings.Contains(diag, "frobzulate") {
		t.Errorf("validator stopped at the first error:\n%s", diag)
	}
}

func TestBuiltinComparatorRequireIsNoOp(t *testing.T) {
	inst := newTestInstance(t)
	bin1 := compileString(t, inst, "keep;")
	bin2 := compileString(t, inst, "require [\"comparator-i;octet\", \"comparator-i;ascii-casemap\"];\nkeep;")
	if !bytes.Equal(bin1.container.Marshal(), bin2.container.Marshal()) {
		t.Error("requiring built-in comparators changed the binary")
	}
}

func TestCompileNoEnvelopeFlag(t *testing.T) {
	inst := newTestInstance(t)
	errs := NewErrorHandler(nil, 0)
	script := NewScript("test", "test", []byte("require \"envelope\";\nkeep;"))
	if bin, _ := inst.Compile(script, errs, CompileNoEnvelope); bin != nil {
		t.Error("envelope require compiled despite CompileNoEnvelope")
	}
	errs.Reset()
	if _, err := inst.Compile(script, errs, 0); err != nil {
		t.Errorf("envelope require failed without flag: %v", err)
	}
}

func TestScriptSizeLimit(t *testing.T) {
	inst := newTestInstance(t, WithMaxScriptSize(10))
	errs := NewErrorHandler(nil, 0)
	_, err := inst.Compile(NewScript("test", "test", []byte("keep; keep; keep;")), errs, 0)
	if KindOfError(err) != ErrorNotValid {
		t.Errorf("oversized script error = %v, want not valid", err)
	}
}
