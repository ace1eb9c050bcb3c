package codegen

import (
	"strings"
	"testing"

	"mlsec/internal/parser"
)

func TestGenerateEmitsRunEntryPoint(t *testing.T) {
	prog, err := parser.Parse([]byte(`
function add(a, b) {
	return a + b;
}
`), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	result, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned an error: %v", err)
	}
	if !strings.Contains(result.Source, "package main") {
		t.Error("generated source must declare package main")
	}
	if !strings.Contains(result.Source, `"mlsec/internal/runtime"`) {
		t.Error("generated source must import internal/runtime and nothing else host-level")
	}
	if !strings.Contains(result.Source, "func Run(env *runtime.Env) (result runtime.Value, err error)") {
		t.Error("generated source must expose the Run(env) entry point the runner resolves")
	}
}

func TestGenerateProducesSourceMap(t *testing.T) {
	prog, err := parser.Parse([]byte(`
function f() {
	return 1;
}
`), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned an error: %v", err)
	}
	if len(result.SourceMap) == 0 {
		t.Error("expected at least one source map entry for a non-trivial program")
	}
}
