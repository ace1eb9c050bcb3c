package analyzer

import (
	"fmt"

	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
)

// taintSources introduce taint: a variable assigned the result of one of
// these calls is untrusted from that point on. Both bare names and
// module-qualified names (as calleeName resolves a chain of member
// accesses on identifiers) are listed explicitly.
var taintSources = map[string]bool{
	"read_input": true, "get_request_param": true, "read_env": true, "read_socket": true,
	"network.get": true, "network.post": true, "network.fetch": true,
}

// taintSinks raise a finding when called with a tainted argument.
var taintSinks = map[string]bool{
	"system": true, "exec": true, "query": true, "write_file": true, "eval": true, "eval_like": true,
}

// sanitizers reset taint: a call to one of these is treated as producing
// a clean value regardless of its argument's taint.
var sanitizers = map[string]bool{
	"sanitize": true, "escape": true, "validate": true, "quote": true,
}

// taintState is the forward-dataflow fact at a program point: the set of
// variable names currently holding tainted data.
type taintState map[string]bool

func (s taintState) clone() taintState {
	out := make(taintState, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

// union merges b's tainted variables into s — the join operator used at
// control-flow merge points (after if/while/try), since a variable
// tainted on any incoming path must be treated as tainted going forward.
func (s taintState) union(b taintState) {
	for k := range b {
		s[k] = true
	}
}

// runTaintPass implements the taint/dataflow sub-pass: a forward walk
// over each function body propagating taint from source
// calls to sink calls, treating if/while/for/try bodies as simple
// branches whose outgoing taint states are joined back into the
// enclosing scope.
func runTaintPass(prog *ast.Program, file string) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic
	for _, stmt := range prog.Statements {
		if fn, ok := stmt.(*ast.FunctionDecl); ok {
			st := make(taintState)
			analyzeBlock(fn.Body, st, file, &diags)
		}
	}
	// Top-level statements outside any function share one state too.
	st := make(taintState)
	for _, stmt := range prog.Statements {
		if _, ok := stmt.(*ast.FunctionDecl); ok {
			continue
		}
		analyzeStmt(stmt, st, file, &diags)
	}
	return diags
}

func analyzeBlock(b *ast.Block, st taintState, file string, diags *[]diagnostic.Diagnostic) {
	if b == nil {
		return
	}
	for _, stmt := range b.Statements {
		analyzeStmt(stmt, st, file, diags)
	}
}

func analyzeStmt(stmt ast.Stmt, st taintState, file string, diags *[]diagnostic.Diagnostic) {
	checkSinks(stmt, st, file, diags)

	switch v := stmt.(type) {
	case *ast.AssignStmt:
		if id, ok := v.Target.(*ast.Identifier); ok {
			if isTaintedExpr(v.Value, st) {
				st[id.Name] = true
			} else {
				delete(st, id.Name)
			}
		}
	case *ast.IfStmt:
		branches := make([]taintState, 0, len(v.ElifClauses)+2)
		then := st.clone()
		analyzeBlock(v.Then, then, file, diags)
		branches = append(branches, then)
		for _, elif := range v.ElifClauses {
			b := st.clone()
			analyzeBlock(elif.Body, b, file, diags)
			branches = append(branches, b)
		}
		if v.Else != nil {
			b := st.clone()
			analyzeBlock(v.Else, b, file, diags)
			branches = append(branches, b)
		}
		for _, b := range branches {
			st.union(b)
		}
	case *ast.WhileStmt:
		body := st.clone()
		analyzeBlock(v.Body, body, file, diags)
		st.union(body)
	case *ast.ForStmt:
		body := st.clone()
		analyzeBlock(v.Body, body, file, diags)
		st.union(body)
	case *ast.TryStmt:
		body := st.clone()
		analyzeBlock(v.Body, body, file, diags)
		for _, ex := range v.ExceptClauses {
			b := st.clone()
			analyzeBlock(ex.Body, b, file, diags)
			st.union(b)
		}
		st.union(body)
		if v.Finally != nil {
			analyzeBlock(v.Finally, st, file, diags)
		}
	}
}

// checkSinks scans every call expression reachable from stmt (including
// nested expressions) and raises a finding for any sink call that
// receives a tainted argument under the current state.
func checkSinks(stmt ast.Stmt, st taintState, file string, diags *[]diagnostic.Diagnostic) {
	ast.Walk(stmt, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name, ok := calleeName(call.Callee)
		if !ok || !taintSinks[name] {
			return true
		}
		for _, arg := range call.Args {
			if isTaintedExpr(arg, st) {
				sp := call.Pos()
				*diags = append(*diags, diagnostic.Diagnostic{
					Severity: diagnostic.Critical,
					Category: "taint.source-to-sink",
					Message:  fmt.Sprintf("tainted value reaches sink %q without passing through a sanitizer", name),
					File:     file,
					Span:     sp,
					CWE:      "CWE-20",
				})
				break
			}
		}
		return true
	})
}

// isTaintedExpr reports whether e evaluates to tainted data under st. A
// call to a sanitizer always yields a clean value even if its argument is
// tainted; a call to a source always yields a tainted value; any other
// call is tainted iff any of its arguments are.
func isTaintedExpr(e ast.Expr, st taintState) bool {
	switch v := e.(type) {
	case *ast.Identifier:
		return st[v.Name]
	case *ast.Literal:
		return false
	case *ast.BinaryExpr:
		return isTaintedExpr(v.Left, st) || isTaintedExpr(v.Right, st)
	case *ast.UnaryExpr:
		return isTaintedExpr(v.Operand, st)
	case *ast.CallExpr:
		if name, ok := calleeName(v.Callee); ok {
			if sanitizers[name] {
				return false
			}
			if taintSources[name] {
				return true
			}
		}
		for _, a := range v.Args {
			if isTaintedExpr(a, st) {
				return true
			}
		}
		return false
	case *ast.MemberExpr:
		return isTaintedExpr(v.Object, st)
	case *ast.IndexExpr:
		return isTaintedExpr(v.Object, st) || isTaintedExpr(v.Index, st)
	case *ast.ArrayLit:
		for _, el := range v.Elements {
			if isTaintedExpr(el, st) {
				return true
			}
		}
		return false
	case *ast.ObjectLit:
		for _, val := range v.Values {
			if isTaintedExpr(val, st) {
				return true
			}
		}
		return false
	case *ast.TemplateLit:
		for _, expr := range v.Exprs {
			if isTaintedExpr(expr, st) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
