package analyzer

import (
	"fmt"

	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
)

// patternSchema declares the fixed Datalog rule set for the pattern
// sub-pass: pattern matching against a fixed table of dangerous call
// signatures. call_site facts are asserted from one AST walk;
// dangerous_name is the fixed denylist; dangerous_call is the derived
// join the driver reads back as Diagnostics.
const patternSchema = `
Decl call_site(Name, File, Line, Col).
Decl dangerous_name(Name).
Decl dangerous_call(Name, File, Line, Col).

dangerous_call(Name, File, Line, Col) :-
  call_site(Name, File, Line, Col),
  dangerous_name(Name).
`

// dangerousNames is the fixed denylist of callable names the pattern
// sub-pass flags on sight, regardless of capability context — a fixed
// rule table, independent of the taint sub-pass's source/sink graph.
// Covers arbitrary-code-execution primitives, SQL-injection-shaped query
// builders (raw/concatenated query execution instead of parameterized
// calls), and weak cryptographic algorithms.
var dangerousNames = []string{
	"eval", "exec", "compile", "__import__", "system", "popen", "spawn",
	"execute_sql", "raw_query", "format_query", "concat_query",
	"md5", "sha1", "des", "rc4",
}

// runPatternPass walks prog once, asserting a call_site fact per CallExpr
// whose callee resolves to a plain name, then evaluates patternSchema and
// reads dangerous_call back out as Diagnostics.
func runPatternPass(prog *ast.Program, file string) ([]diagnostic.Diagnostic, error) {
	eng, err := newRuleEngine(patternSchema)
	if err != nil {
		return nil, err
	}
	for _, name := range dangerousNames {
		if err := eng.assert("dangerous_name", name); err != nil {
			return nil, err
		}
	}

	var walkErr error
	ast.Walk(prog, func(n ast.Node) bool {
		if walkErr != nil {
			return false
		}
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name, ok := calleeName(call.Callee)
		if !ok {
			return true
		}
		sp := call.Pos()
		walkErr = eng.assert("call_site", name, file, sp.Line, sp.Column)
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if err := eng.evaluate(); err != nil {
		return nil, fmt.Errorf("analyzer: evaluate pattern rules: %w", err)
	}
	rows, err := eng.query("dangerous_call")
	if err != nil {
		return nil, err
	}

	var diags []diagnostic.Diagnostic
	for _, r := range rows {
		name, _ := r[0].(string)
		f, _ := r[1].(string)
		line, _ := r[2].(int)
		col, _ := r[3].(int)
		diags = append(diags, diagnostic.Diagnostic{
			Severity: diagnostic.Critical,
			Category: "pattern.dangerous-call",
			Message:  fmt.Sprintf("call to %q matches a fixed denylist of dangerous operations", name),
			File:     f,
			Span:     ast.Span{Line: line, Column: col},
			CWE:      "CWE-95",
		})
	}
	return diags, nil
}

// calleeName resolves a call's callee to a flat dotted name when it is a
// plain identifier or chain of member accesses on identifiers
// (`os.system`-shaped calls). The denylist is matched against the whole
// dotted name, and it lists bare names only, so a member call such as
// `os.system(...)` is not flagged by this pass.
func calleeName(e ast.Expr) (string, bool) {
	switch v := e.(type) {
	case *ast.Identifier:
		return v.Name, true
	case *ast.MemberExpr:
		base, ok := calleeName(v.Object)
		if !ok {
			return v.Name, true
		}
		return base + "." + v.Name, true
	default:
		return "", false
	}
}
