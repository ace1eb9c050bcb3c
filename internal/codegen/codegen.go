// Package codegen lowers a parsed, analyzer-approved *ast.Program into Go
// source that imports nothing but internal/runtime, plus a source map
// tying every emitted statement back to its origin span.
//
// Host-level failure inside generated code — a capability denial, a type
// error, division by zero — unwinds via Go's own panic/recover
// (runtime.Must / runtime.PanicError), giving try/except/finally a
// structured unwind to lower onto.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"mlsec/internal/ast"
)

// SourceMapEntry ties one line of generated Go source back to the AST
// span that produced it.
type SourceMapEntry struct {
	GeneratedLine int
	Span          ast.Span
}

// Result is everything codegen hands to the sandbox executor.
type Result struct {
	Source    string
	SourceMap []SourceMapEntry
}

// CodegenError is raised for ML constructs this generator cannot lower:
// break/continue reachable from inside a try/except/finally body, which
// would need to cross a Go closure boundary, and any statement,
// expression, assignment target or call target of a kind the emitter has
// no case for.
type CodegenError struct {
	Span    ast.Span
	Message string
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("%d:%d: codegen: %s", e.Span.Line, e.Span.Column, e.Message)
}

// Generate lowers prog to Go source implementing package main's Run entry
// point, which mlrunner's yaegi host calls with a *runtime.Env built from
// the sandbox's granted capability tokens.
func Generate(prog *ast.Program) (*Result, error) {
	g := &gen{}
	g.writeln("package main")
	g.writeln("")
	g.writeln(`import "mlsec/internal/runtime"`)
	g.writeln("")

	if err := g.emitTopLevelFunctions(prog); err != nil {
		return nil, err
	}
	if err := g.emitRun(prog); err != nil {
		return nil, err
	}

	if len(g.errs) > 0 {
		return nil, g.errs[0]
	}
	return &Result{Source: g.buf.String(), SourceMap: g.sourceMap}, nil
}

type gen struct {
	buf        strings.Builder
	line       int
	sourceMap  []SourceMapEntry
	tryCounter int
	errs       []error
}

func (g *gen) writeln(s string) {
	g.buf.WriteString(s)
	g.buf.WriteByte('\n')
	g.line++
}

func (g *gen) mark(span ast.Span) {
	g.sourceMap = append(g.sourceMap, SourceMapEntry{GeneratedLine: g.line + 1, Span: span})
}

func (g *gen) fail(span ast.Span, format string, args ...interface{}) {
	g.errs = append(g.errs, &CodegenError{Span: span, Message: fmt.Sprintf(format, args...)})
}

// quoteGoString renders s as a double-quoted Go string literal.
func quoteGoString(s string) string { return strconv.Quote(s) }

// scope tracks which local Go variable names have already been declared
// with `:=` in the current generated function, so later assignments to
// the same ML variable correctly use `=`.
type scope struct {
	declared map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope { return &scope{declared: map[string]bool{}, parent: parent} }

func (s *scope) isDeclared(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.declared[name] {
			return true
		}
	}
	return false
}

func (s *scope) declare(name string) { s.declared[name] = true }

func govar(name string) string { return "v_" + name }
