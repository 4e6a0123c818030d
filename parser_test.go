package sieve

import (
	"bytes"
	"strings"
	"testing"

	"github.com/d--j/go-sieve/ast"
)

func parseString(t *testing.T, src string) (*ast.Tree, *ErrorHandler) {
	t.Helper()
	errs := NewErrorHandler(nil, 0)
	tree, _ := Parse(NewScript("test", "test", []byte(src)), errs)
	return tree, errs
}

func TestParseShapes(t *testing.T) {
	src := `require ["fileinto"];
if anyof (header :contains "Subject" ["a", "b"], size :over 10K) {
    fileinto "Junk";
} else {
    keep;
}
`
	tree, errs := parseString(t, src)
	if errs.ErrorCount() != 0 {
		t.Fatalf("parse reported %d errors", errs.ErrorCount())
	}
	if len(tree.Commands) != 3 {
		t.Fatalf("got %d top-level commands, want 3", len(tree.Commands))
	}

	ifCmd := tree.Commands[1]
	if ifCmd.Identifier != "if" || !ifCmd.HasBlock {
		t.Fatalf("second command = %q (block %v), want if with block", ifCmd.Identifier, ifCmd.HasBlock)
	}
	if len(ifCmd.Tests) != 1 || ifCmd.Tests[0].Identifier != "anyof" {
		t.Fatalf("if test = %+v, want anyof", ifCmd.Tests)
	}
	anyof := ifCmd.Tests[0]
	if len(anyof.Tests) != 2 {
		t.Fatalf("anyof has %d sub-tests, want 2", len(anyof.Tests))
	}
	header := anyof.Tests[0]
	if len(header.Arguments) != 3 {
		t.Fatalf("header has %d arguments, want 3 (tag + 2 positionals)", len(header.Arguments))
	}
	if header.Arguments[0].Type != ast.ArgumentTag || header.Arguments[0].Tag != "contains" {
		t.Errorf("first header argument = %s", header.Arguments[0].Name())
	}
	if header.Arguments[2].Type != ast.ArgumentStringList ||
		strings.Join(header.Arguments[2].List, ",") != "a,b" {
		t.Errorf("third header argument = %s", header.Arguments[2].Name())
	}
	size := anyof.Tests[1]
	if size.Arguments[1].Type != ast.ArgumentNumber || size.Arguments[1].Number != 10*1024 {
		t.Errorf("size limit argument = %s, want scaled 10K", size.Arguments[1].Name())
	}
	if len(ifCmd.Commands) != 1 || ifCmd.Commands[0].Identifier != "fileinto" {
		t.Errorf("if block = %+v", ifCmd.Commands)
	}
}

func TestParseEmptyStringList(t *testing.T) {
	tree, errs := parseString(t, "if header :is [] \"x\" { keep; }")
	if errs.ErrorCount() != 0 {
		t.Fatalf("parse reported %d errors", errs.ErrorCount())
	}
	header := tree.Commands[0].Tests[0]
	arg := header.Arguments[1]
	if arg.Type != ast.ArgumentStringList || len(arg.List) != 0 {
		t.Errorf("empty list parsed as %s", arg.Name())
	}
}

func TestParseErrorRecovery(t *testing.T) {
	// two distinct syntax errors; the keep between them must still be
	// parsed so the validator sees it
	src := "discard ??;\nkeep;\nif { }\n"
	var diag bytes.Buffer
	errs := NewErrorHandler(&diag, 0)
	tree, err := Parse(NewScript("test", "test", []byte(src)), errs)
	if tree != nil {
		t.Error("Parse() returned a tree despite errors")
	}
	if err == nil || KindOfError(err) != ErrorNotValid {
		t.Errorf("Parse() error = %v, want not valid", err)
	}
	if errs.ErrorCount() < 2 {
		t.Errorf("Parse() reported %d errors, want at least 2:\n%s", errs.ErrorCount(), diag.String())
	}
	if !strings.Contains(diag.String(), "test:1:") {
		t.Errorf("diagnostics missing position of first error:\n%s", diag.String())
	}
}

func TestParseUnbalancedBrace(t *testing.T) {
	_, errs := parseString(t, "keep;\n}\n")
	if errs.ErrorCount() == 0 {
		t.Error("unbalanced '}' not reported")
	}
}

func TestParsePrintReparse(t *testing.T) {
	sources := []string{
		"keep;\n",
		"require [\"fileinto\"]; # comment\nif size :over 1K { fileinto \"big\"; } else { keep; }\n",
		"if anyof (true, false, not exists [\"a\", \"b\"]) { discard; }\n",
		"if header :contains :comparator \"i;octet\" \"subject\" \"x\" { stop; }\n",
		"redirect \"a@b.example\";\nkeep;\n",
		"reject text: # note\nstuffed\n..line\n.\n;\n",
	}
	for _, src := range sources {
		tree, errs := parseString(t, src)
		if errs.ErrorCount() != 0 || tree == nil {
			t.Fatalf("parse(%q) failed", src)
		}
		printed := ast.Unparse(tree)
		tree2, errs2 := parseString(t, printed)
		if errs2.ErrorCount() != 0 || tree2 == nil {
			t.Fatalf("reparse of %q failed:\n%s", src, printed)
		}
		if again := ast.Unparse(tree2); again != printed {
			t.Errorf("print/reparse not stable for %q:\nfirst:\n%s\nsecond:\n%s", src, printed, again)
		}
	}
}
