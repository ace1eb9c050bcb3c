package safeattr

import "testing"

func alwaysHeld(string) bool { return true }
func neverHeld(string) bool  { return false }

func TestBuiltinsWhitelist(t *testing.T) {
	r := New()
	if !r.IsSafe("string", "upper", alwaysHeld) {
		t.Error("string.upper should be a safe built-in")
	}
	if r.IsSafe("string", "exec", alwaysHeld) {
		t.Error("string.exec is not a registered attribute and must be denied")
	}
}

func TestDunderAlwaysDenied(t *testing.T) {
	r := New()
	r.Register("widget", map[string]SafeAttribute{"__class__": {Name: "__class__", Kind: Property}})
	if r.IsSafe("widget", "__class__", alwaysHeld) {
		t.Error("dunder attributes must be denied regardless of registration")
	}
}

func TestRegisterRequiresCapability(t *testing.T) {
	r := New()
	r.Register("filehandle", map[string]SafeAttribute{
		"read": {Name: "read", Kind: Method, RequiredCapabilities: []string{"file"}},
	})
	if !r.IsSafe("filehandle", "read", alwaysHeld) {
		t.Error("read should be allowed when the required capability is held")
	}
	if r.IsSafe("filehandle", "read", neverHeld) {
		t.Error("read should be denied when the required capability is not held")
	}
}

func TestForbiddenKindAlwaysDenied(t *testing.T) {
	r := New()
	r.Register("secret", map[string]SafeAttribute{"value": {Name: "value", Kind: Forbidden}})
	if r.IsSafe("secret", "value", alwaysHeld) {
		t.Error("Forbidden-kind attributes must never be reported safe")
	}
}

func TestUnknownTypeDenied(t *testing.T) {
	r := New()
	if r.IsSafe("nonexistent", "anything", alwaysHeld) {
		t.Error("an unregistered type must deny every attribute")
	}
}

func TestRegisterIsCopyOnWrite(t *testing.T) {
	r := New()
	r.Register("a", map[string]SafeAttribute{"x": {Name: "x", Kind: Property}})
	snapBefore := r.load()
	r.Register("b", map[string]SafeAttribute{"y": {Name: "y", Kind: Property}})
	if _, ok := snapBefore.byType["b"]; ok {
		t.Error("a snapshot captured before Register must not observe the later registration")
	}
}
