package analyzer

import (
	"context"
	"testing"

	"mlsec/internal/diagnostic"
	"mlsec/internal/parser"
)

func TestAnalyzeFlagsDangerousCall(t *testing.T) {
	src := `
function run() {
	eval("2 + 2");
}
`
	prog, err := parser.Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Analyze(context.Background(), prog, "test.ml")
	if err != nil {
		t.Fatalf("Analyze returned an error: %v", err)
	}
	if result.Partial {
		t.Fatal("did not expect a partial result on a trivial program")
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Message != "" && d.Category == "pattern.dangerous-call" {
			found = true
		}
	}
	if !found {
		t.Error("expected the pattern pass to flag a call to eval")
	}
}

func TestAnalyzeCleanProgramHasNoFindings(t *testing.T) {
	src := `
function add(a, b) {
	return a + b;
}
`
	prog, err := parser.Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Analyze(context.Background(), prog, "test.ml")
	if err != nil {
		t.Fatalf("Analyze returned an error: %v", err)
	}
	if diagnostic.MaxSeverity(result.Diagnostics) > diagnostic.Info {
		t.Errorf("expected no findings above info for a clean program, got severity %s", diagnostic.MaxSeverity(result.Diagnostics))
	}
}

func TestAnalyzeFlagsTaintedValueReachingSink(t *testing.T) {
	src := `
function run() {
	data = network.get("https://example.com/feed");
	eval_like(data);
}
`
	prog, err := parser.Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Analyze(context.Background(), prog, "test.ml")
	if err != nil {
		t.Fatalf("Analyze returned an error: %v", err)
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Category == "taint.source-to-sink" && d.CWE == "CWE-20" {
			found = true
		}
	}
	if !found {
		t.Error("expected the taint pass to flag an unsanitized source-to-sink flow")
	}
}

func TestAnalyzeSanitizerBreaksTaintFlow(t *testing.T) {
	src := `
function run() {
	data = network.get("https://example.com/feed");
	clean = sanitize(data);
	eval_like(clean);
}
`
	prog, err := parser.Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Analyze(context.Background(), prog, "test.ml")
	if err != nil {
		t.Fatalf("Analyze returned an error: %v", err)
	}
	for _, d := range result.Diagnostics {
		if d.Category == "taint.source-to-sink" {
			t.Errorf("sanitize() must break the taint flow, got finding: %s", d.Message)
		}
	}
}

func TestAnalyzeFlagsForbiddenImport(t *testing.T) {
	src := `
import os;

function run() {
	return 1;
}
`
	prog, err := parser.Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Analyze(context.Background(), prog, "test.ml")
	if err != nil {
		t.Fatalf("Analyze returned an error: %v", err)
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Category == "ast.forbidden-import" {
			found = true
		}
	}
	if !found {
		t.Error("expected the AST pass to flag a direct import of a forbidden host module")
	}
}

func TestAnalyzeCapabilityDeclWellFormed(t *testing.T) {
	src := `
capability fs {
	resource "/tmp/*";
	allow read;
}
`
	prog, err := parser.Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Analyze(context.Background(), prog, "test.ml")
	if err != nil {
		t.Fatalf("Analyze returned an error: %v", err)
	}
	if diagnostic.MaxSeverity(result.Diagnostics) == diagnostic.Critical {
		t.Error("a well-formed capability declaration must not be flagged critical")
	}
}
