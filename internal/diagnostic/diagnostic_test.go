package diagnostic

import (
	"errors"
	"testing"

	"mlsec/internal/ast"
)

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	span := ast.Span{Line: 1, Column: 1}
	a := []Diagnostic{{Severity: Low, Category: "taint", Message: "tainted arg", Span: span}}
	b := []Diagnostic{
		{Severity: High, Category: "taint", Message: "tainted arg", Span: span}, // same key, should be dropped
		{Severity: Medium, Category: "pattern", Message: "eval call", Span: span},
	}
	out := Dedup(a, b)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped diagnostics, got %d", len(out))
	}
	if out[0].Severity != Low {
		t.Errorf("expected the first occurrence's severity to win, got %s", out[0].Severity)
	}
}

func TestMaxSeverityEmpty(t *testing.T) {
	if got := MaxSeverity(nil); got != Info {
		t.Errorf("MaxSeverity(nil) = %s, want info", got)
	}
}

func TestAtOrAbove(t *testing.T) {
	diags := []Diagnostic{
		{Severity: Info}, {Severity: Low}, {Severity: Medium}, {Severity: High}, {Severity: Critical},
	}
	got := AtOrAbove(diags, Medium)
	if len(got) != 3 {
		t.Fatalf("expected 3 diagnostics at or above medium, got %d", len(got))
	}
}

func TestParseSeverityRoundTrip(t *testing.T) {
	for _, s := range []Severity{Info, Low, Medium, High, Critical} {
		got, ok := ParseSeverity(s.String())
		if !ok || got != s {
			t.Errorf("ParseSeverity(%q) = %v, %v, want %v, true", s.String(), got, ok, s)
		}
	}
	if _, ok := ParseSeverity("bogus"); ok {
		t.Error("ParseSeverity(\"bogus\") should report false")
	}
}

func TestInfrastructureErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := &InfrastructureError{Op: "spawn", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("InfrastructureError must unwrap to its cause")
	}
}
