// Package diagnostic defines the structured diagnostic record and the
// error taxonomy shared by every stage of the pipeline. Every error kind
// implements the standard error interface, so callers can errors.As
// through the pipeline boundary; InfrastructureError is the one kind that
// carries a cause, exposed through Unwrap for errors.Is/errors.As.
package diagnostic

import (
	"fmt"

	"mlsec/internal/ast"
)

// Severity orders info < low < medium < high < critical.
type Severity int

const (
	Info Severity = iota
	Low
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity parses the lowercase names used in policy/config files.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "info":
		return Info, true
	case "low":
		return Low, true
	case "medium":
		return Medium, true
	case "high":
		return High, true
	case "critical":
		return Critical, true
	default:
		return Info, false
	}
}

// Diagnostic is one structured finding.
type Diagnostic struct {
	Severity   Severity
	Category   string
	Message    string
	File       string
	Span       ast.Span
	CWE        string // optional, empty if not applicable
	Suggestion string // optional
	Metadata   map[string]string
}

// dedupKey identifies duplicates by (span, category, message).
func (d Diagnostic) dedupKey() dedupKeyT {
	return dedupKeyT{d.Span, d.Category, d.Message}
}

type dedupKeyT struct {
	Span     ast.Span
	Category string
	Message  string
}

// Dedup merges diagnostic slices from independent passes, keeping the
// first occurrence of each (span, category, message) tuple and preserving
// the relative order sub-passes were merged in. This is the single merge
// point all of the security analyzer's sub-passes funnel through.
func Dedup(lists ...[]Diagnostic) []Diagnostic {
	seen := make(map[dedupKeyT]bool)
	var out []Diagnostic
	for _, list := range lists {
		for _, d := range list {
			k := d.dedupKey()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, d)
		}
	}
	return out
}

// MaxSeverity returns the highest severity present, or Info if empty.
func MaxSeverity(diags []Diagnostic) Severity {
	max := Info
	for _, d := range diags {
		if d.Severity > max {
			max = d.Severity
		}
	}
	return max
}

// AtOrAbove filters diagnostics at or above the given severity.
func AtOrAbove(diags []Diagnostic, min Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out
}

// --- Error taxonomy ---

// ParseError is produced by the lexer/parser; it carries the offending
// span and what was expected vs. found. It is not recoverable except at
// the compilation-unit boundary (the caller moves on to the next file).
type ParseError struct {
	File     string
	Span     ast.Span
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: parse error: expected %s, found %s",
		e.File, e.Span.Line, e.Span.Column, e.Expected, e.Found)
}

// SecurityError wraps a critical-severity Diagnostic that aborted
// compilation.
type SecurityError struct {
	Diagnostic Diagnostic
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("%s:%d:%d: security error [%s/%s]: %s",
		e.Diagnostic.File, e.Diagnostic.Span.Line, e.Diagnostic.Span.Column,
		e.Diagnostic.Severity, e.Diagnostic.Category, e.Diagnostic.Message)
}

// CapabilityDeclarationError is raised by the validator when a declared
// capability cannot be proven to be covered by any granted token.
type CapabilityDeclarationError struct {
	CapabilityType string
	Reason         string
}

func (e *CapabilityDeclarationError) Error() string {
	return fmt.Sprintf("capability declaration %q not covered by granted policy: %s", e.CapabilityType, e.Reason)
}

// CapabilityDenied is a runtime denial.
type CapabilityDenied struct {
	CapabilityType string
	Resource       string
	Operation      string
	Reason         string
}

func (e *CapabilityDenied) Error() string {
	return fmt.Sprintf("capability denied: %s %s on %q: %s", e.Operation, e.CapabilityType, e.Resource, e.Reason)
}

// AttributeForbidden is raised by the safe-attribute registry.
type AttributeForbidden struct {
	TypeName string
	Attr     string
}

func (e *AttributeForbidden) Error() string {
	return fmt.Sprintf("attribute forbidden: %s.%s", e.TypeName, e.Attr)
}

// ResourceLimitExceeded is raised by the sandbox when a configured limit
// (CPU, memory, wall time, open files) is exceeded.
type ResourceLimitExceeded struct {
	Limit string
	Used  string
	Max   string
}

func (e *ResourceLimitExceeded) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s (used %s, max %s)", e.Limit, e.Used, e.Max)
}

// UserLanguageError is anything the user program raises through
// try/except, including division by zero, index out of range, and type
// mismatches in operators.
type UserLanguageError struct {
	Kind    string
	Message string
}

func (e *UserLanguageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// InfrastructureError wraps a failure in the host environment itself
// (cannot spawn child, cannot read file, broken pipe) — it always
// surfaces in the parent process, never as a user-visible language error.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure error during %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }
