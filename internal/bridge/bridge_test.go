package bridge_test

import (
	"testing"

	"go.uber.org/goleak"

	"mlsec/internal/bridge"
	"mlsec/internal/bridge/stringsbridge"
	"mlsec/internal/capability"
	"mlsec/internal/runtime"
	"mlsec/internal/safeattr"
)

// TestMain verifies no goroutine leaks beyond the capability manager's
// own sweep loop, which is started once per process by the Instance()
// singleton and intentionally outlives any single test.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("mlsec/internal/capability.(*Manager).sweepLoop"),
	)
}

func rootCtx(tokens []*capability.Token) *capability.Context {
	return capability.Instance().NewRootContext("test-root", tokens)
}

func TestLoadDeniedWithoutCapability(t *testing.T) {
	table := bridge.NewTable()
	stringsbridge.New(table)
	registry := safeattr.New()

	ctx := rootCtx(nil)
	err := table.Load(ctx, registry, stringsbridge.Name)
	if err == nil {
		t.Fatal("expected Load to be denied without the textutil capability")
	}
}

func TestLoadAndCallModule(t *testing.T) {
	table := bridge.NewTable()
	stringsbridge.New(table)
	registry := safeattr.New()

	tok := capability.New(stringsbridge.RequiredCapability, []string{"*"}, []string{"import"}, capability.Constraints{})
	ctx := rootCtx([]*capability.Token{tok})

	if err := table.Load(ctx, registry, stringsbridge.Name); err != nil {
		t.Fatalf("Load returned an error with the capability granted: %v", err)
	}

	v, err := table.CallModule(ctx, stringsbridge.Name, "contains", []runtime.Value{runtime.String("hello world"), runtime.String("world")})
	if err != nil {
		t.Fatalf("CallModule returned an error: %v", err)
	}
	if !v.AsBool() {
		t.Error(`contains("hello world", "world") should be true`)
	}
}

func TestCallModuleUnknownFunction(t *testing.T) {
	table := bridge.NewTable()
	stringsbridge.New(table)
	tok := capability.New(stringsbridge.RequiredCapability, []string{"*"}, []string{"import"}, capability.Constraints{})
	ctx := rootCtx([]*capability.Token{tok})
	registry := safeattr.New()
	_ = table.Load(ctx, registry, stringsbridge.Name)

	if _, err := table.CallModule(ctx, stringsbridge.Name, "nonexistent", nil); err == nil {
		t.Fatal("expected an error calling an unregistered function")
	}
}
