package parser

import (
	"testing"

	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
)

func TestParseCapabilityAndFunction(t *testing.T) {
	src := `
capability fs {
	resource "/tmp/*";
	allow read;
	allow write to "/tmp/scratch";
}

function greet(name) {
	if (name == "") {
		return "hello, stranger";
	} else {
		return "hello, " + name;
	}
}
`
	prog, err := Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}
	if len(prog.Capabilities) != 1 {
		t.Fatalf("expected 1 capability decl, got %d", len(prog.Capabilities))
	}
	cap := prog.Capabilities[0]
	if cap.Name != "fs" {
		t.Errorf("capability name = %q, want %q", cap.Name, "fs")
	}
	if len(cap.Allows) != 2 {
		t.Fatalf("expected 2 allow items, got %d", len(cap.Allows))
	}
	if cap.Allows[1].To != "/tmp/scratch" {
		t.Errorf("second allow's To = %q, want /tmp/scratch", cap.Allows[1].To)
	}

	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 top-level statement (the function decl), got %d", len(prog.Statements))
	}
}

func TestParseRejectsDunderMemberName(t *testing.T) {
	src := `function f() { return x.__class__; }`
	if _, err := Parse([]byte(src), "test.ml"); err == nil {
		t.Fatal("expected a lexical error for a dunder member name")
	}
}

func TestParseImportWithAlias(t *testing.T) {
	src := `import net.http as http;`
	prog, err := Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}
	if len(prog.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(prog.Imports))
	}
	imp := prog.Imports[0]
	if imp.Alias != "http" {
		t.Errorf("import alias = %q, want http", imp.Alias)
	}
	want := []string{"net", "http"}
	if len(imp.Path) != len(want) || imp.Path[0] != want[0] || imp.Path[1] != want[1] {
		t.Errorf("import path = %v, want %v", imp.Path, want)
	}
}

func TestParseErrorReportsSpan(t *testing.T) {
	_, err := Parse([]byte(`function f( { }`), "test.ml")
	if err == nil {
		t.Fatal("expected a parse error for malformed parameter list")
	}
	if perr, ok := err.(*diagnostic.ParseError); ok && perr.Span == (ast.Span{}) {
		t.Error("parse error should carry a non-zero span")
	}
}
