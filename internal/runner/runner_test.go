package runner

import (
	"context"
	"testing"
	"time"

	"mlsec/internal/capability"
	"mlsec/internal/codegen"
	"mlsec/internal/parser"
	"mlsec/internal/runtime"
	"mlsec/internal/safeattr"
)

func newEnv() *runtime.Env {
	ctx := capability.Instance().NewRootContext("runner-test", nil)
	return &runtime.Env{Registry: safeattr.New(), Ctx: ctx}
}

func generate(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse([]byte(src), "test.ml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := codegen.Generate(prog)
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return result.Source
}

func TestRunEvaluatesGeneratedProgram(t *testing.T) {
	src := generate(t, `
return 2 + 3;
`)
	v, err := Run(context.Background(), src, newEnv())
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if v.AsNumber() != 5 {
		t.Errorf("got %v, want 5", v.AsNumber())
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	src := generate(t, `
while (true) {
}
return 0;
`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, src, newEnv())
	if err == nil {
		t.Fatal("expected Run to return an error when the context deadline is exceeded")
	}
}
