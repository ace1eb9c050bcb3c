package codegen

import (
	"fmt"
	"strings"

	"mlsec/internal/ast"
)

// emitTopLevelFunctions lowers every top-level function_decl to a
// package-level variable assigned inside its own init(), so mutual
// recursion between top-level functions works regardless of declaration
// order, since control flow (including calls) is lowered verbatim.
func (g *gen) emitTopLevelFunctions(prog *ast.Program) error {
	for _, stmt := range prog.Statements {
		fn, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		g.mark(fn.Span)
		g.writeln(fmt.Sprintf("var %s func(args []runtime.Value) (result runtime.Value, err error)", govar(fn.Name)))
		g.writeln("")
		g.writeln(fmt.Sprintf("func init() { %s = %s }", govar(fn.Name), "mlFunc_"+fn.Name))
		g.writeln("")
		g.emitFunctionBody("mlFunc_"+fn.Name, fn)
		g.writeln("")
	}
	return nil
}

// emitRun lowers every capability declaration into one scoped
// runtime.AcquireScope call wrapping the whole program, loads every
// imported bridge module, then runs the top-level (non-function)
// statements.
func (g *gen) emitRun(prog *ast.Program) error {
	g.writeln("var __env *runtime.Env")
	g.writeln("")
	g.writeln("func Run(env *runtime.Env) (result runtime.Value, err error) {")
	g.writeln("\tdefer func() { if r := recover(); r != nil { result, err = runtime.Recover(r) } }()")
	g.writeln("")
	g.writeln("\tspecs := []runtime.CapSpec{")
	for _, cd := range prog.Capabilities {
		g.emitCapSpecs(cd)
	}
	g.writeln("\t}")
	g.writeln(`	scoped, release := runtime.AcquireScope(env, "program", specs)`)
	g.writeln("\tdefer release()")
	g.writeln("\t__env = scoped")
	g.writeln("")
	for _, imp := range prog.Imports {
		name := imp.Path[len(imp.Path)-1]
		g.mark(imp.Span)
		g.writeln(fmt.Sprintf("\tif err := runtime.LoadModule(__env, %s); err != nil { return runtime.Null(), err }", quoteGoString(name)))
	}
	g.writeln("")

	sc := newScope(nil)
	topLevel := make([]ast.Stmt, 0, len(prog.Statements))
	for _, stmt := range prog.Statements {
		if _, ok := stmt.(*ast.FunctionDecl); ok {
			continue
		}
		topLevel = append(topLevel, stmt)
	}
	g.hoistLocals(topLevel, sc, "\t")

	fc := &funcCtx{scope: sc}
	for _, stmt := range topLevel {
		g.emitStmt(stmt, fc, "\t")
	}
	g.writeln("\treturn runtime.Null(), nil")
	g.writeln("}")
	return nil
}

// emitCapSpecs lowers one `capability NAME { ... }` declaration into one
// runtime.CapSpec literal per distinct `allow OP to "override"` group —
// allows with no override share the declaration's own resource_patterns,
// a group of its own: each distinct To value needs its own pattern set
// since CapSpec carries a single ResourcePatterns list.
func (g *gen) emitCapSpecs(cd *ast.CapabilityDecl) {
	groups := map[string][]string{}
	order := []string{}
	for _, a := range cd.Allows {
		if _, seen := groups[a.To]; !seen {
			order = append(order, a.To)
		}
		groups[a.To] = append(groups[a.To], a.Operation)
	}
	for _, to := range order {
		patterns := cd.ResourcePatterns
		if to != "" {
			patterns = []string{to}
		}
		g.writeln("\t\t{")
		g.writeln(fmt.Sprintf("\t\t\tType: %s,", quoteGoString(cd.Name)))
		g.writeln(fmt.Sprintf("\t\t\tResourcePatterns: %s,", goStringSlice(patterns)))
		g.writeln(fmt.Sprintf("\t\t\tOperations: %s,", goStringSlice(groups[to])))
		g.writeln("\t\t},")
	}
}

func goStringSlice(items []string) string {
	parts := make([]string, len(items))
	for i, s := range items {
		parts[i] = quoteGoString(s)
	}
	return "[]string{" + strings.Join(parts, ", ") + "}"
}

// emitFunctionBody emits `func goName(args []runtime.Value) (result runtime.Value, err error) { ... }`
// for one ML function declaration.
func (g *gen) emitFunctionBody(goName string, fn *ast.FunctionDecl) {
	g.writeln(fmt.Sprintf("func %s(args []runtime.Value) (result runtime.Value, err error) {", goName))
	g.writeln("\tdefer func() { if r := recover(); r != nil { result, err = runtime.Recover(r) } }()")
	g.writeln(fmt.Sprintf("\tif len(args) != %d {", len(fn.Params)))
	g.writeln(fmt.Sprintf("\t\treturn runtime.Null(), runtime.NewArityError(%s, %d, len(args))", quoteGoString(fn.Name), len(fn.Params)))
	g.writeln("\t}")

	sc := newScope(nil)
	for i, p := range fn.Params {
		g.writeln(fmt.Sprintf("\t%s := args[%d]", govar(p), i))
		sc.declare(p)
	}
	g.hoistLocals(fn.Body.Statements, sc, "\t")

	fc := &funcCtx{scope: sc}
	g.emitBlockStmts(fn.Body, fc, "\t")
	g.writeln("\treturn runtime.Null(), nil")
	g.writeln("}")
}

// hoistLocals pre-declares every variable a source-level function body
// ever assigns — across if/while/for/try branches alike — as a single
// zero-valued Go local at function top, the way a transpiler targeting a
// block-scoped host language must when the source language itself is
// function-scoped (variables assigned inside an if branch stay visible
// after it). Without this, a variable first assigned inside one branch
// would be declared with Go's `:=` inside that branch's block and go out
// of scope the moment the block ends.
func (g *gen) hoistLocals(stmts []ast.Stmt, sc *scope, indent string) {
	names := map[string]bool{}
	collectAssignedNames(stmts, names)
	for name := range names {
		if sc.isDeclared(name) {
			continue
		}
		g.writeln(indent + fmt.Sprintf("var %s runtime.Value", govar(name)))
		sc.declare(name)
	}
}

func collectAssignedNames(stmts []ast.Stmt, names map[string]bool) {
	for _, s := range stmts {
		switch v := s.(type) {
		case *ast.AssignStmt:
			if id, ok := v.Target.(*ast.Identifier); ok {
				names[id.Name] = true
			}
		case *ast.IfStmt:
			collectAssignedNames(v.Then.Statements, names)
			for _, elif := range v.ElifClauses {
				collectAssignedNames(elif.Body.Statements, names)
			}
			if v.Else != nil {
				collectAssignedNames(v.Else.Statements, names)
			}
		case *ast.WhileStmt:
			collectAssignedNames(v.Body.Statements, names)
		case *ast.ForStmt:
			names[v.Var] = true
			collectAssignedNames(v.Body.Statements, names)
		case *ast.TryStmt:
			collectAssignedNames(v.Body.Statements, names)
			for _, ec := range v.ExceptClauses {
				if ec.Binding != "" {
					names[ec.Binding] = true
				}
				collectAssignedNames(ec.Body.Statements, names)
			}
			if v.Finally != nil {
				collectAssignedNames(v.Finally.Statements, names)
			}
		case *ast.Block:
			collectAssignedNames(v.Statements, names)
		}
	}
}

// funcCtx carries the per-generated-function state the statement/
// expression emitters need: the variable-declaration scope and how many
// try/except/finally levels currently enclose the statement being
// emitted (break/continue cannot cross that boundary — see
// CodegenError).
type funcCtx struct {
	scope   *scope
	tryDepth int
}

func (g *gen) emitBlockStmts(b *ast.Block, fc *funcCtx, indent string) {
	if b == nil {
		return
	}
	for _, s := range b.Statements {
		g.emitStmt(s, fc, indent)
	}
}

func (g *gen) emitStmt(stmt ast.Stmt, fc *funcCtx, indent string) {
	g.mark(stmt.Pos())
	switch v := stmt.(type) {
	case *ast.FunctionDecl:
		goName := "mlNested_" + v.Name
		g.writeln(indent + fmt.Sprintf("var %s func(args []runtime.Value) (result runtime.Value, err error)", govar(v.Name)))
		g.writeln(indent + fmt.Sprintf("%s = %s", govar(v.Name), goName))
		g.emitFunctionBody(goName, v)
		fc.scope.declare(v.Name)

	case *ast.ExprStmt:
		expr := g.emitExpr(v.X, fc)
		g.writeln(indent + expr)

	case *ast.AssignStmt:
		g.emitAssign(v, fc, indent)

	case *ast.IfStmt:
		cond := g.emitExpr(v.Cond, fc)
		g.writeln(indent + fmt.Sprintf("if (%s).Truthy() {", cond))
		g.emitBlockStmts(v.Then, fc, indent+"\t")
		for _, elif := range v.ElifClauses {
			ec := g.emitExpr(elif.Cond, fc)
			g.writeln(indent + fmt.Sprintf("} else if (%s).Truthy() {", ec))
			g.emitBlockStmts(elif.Body, fc, indent+"\t")
		}
		if v.Else != nil {
			g.writeln(indent + "} else {")
			g.emitBlockStmts(v.Else, fc, indent+"\t")
		}
		g.writeln(indent + "}")

	case *ast.WhileStmt:
		cond := g.emitExpr(v.Cond, fc)
		g.writeln(indent + fmt.Sprintf("for (%s).Truthy() {", cond))
		g.emitBlockStmts(v.Body, fc, indent+"\t")
		g.writeln(indent + "}")

	case *ast.ForStmt:
		g.emitFor(v, fc, indent)

	case *ast.TryStmt:
		g.emitTry(v, fc, indent)

	case *ast.ReturnStmt:
		var expr string
		if v.Value != nil {
			expr = g.emitExpr(v.Value, fc)
		} else {
			expr = "runtime.Null()"
		}
		if fc.tryDepth > 0 {
			g.writeln(indent + fmt.Sprintf("result, err = %s, nil; __ret%d = true; return", expr, fc.tryDepth))
		} else {
			g.writeln(indent + fmt.Sprintf("return %s, nil", expr))
		}

	case *ast.BreakStmt:
		if fc.tryDepth > 0 {
			g.fail(v.Pos(), "break inside try/except/finally is not supported")
			return
		}
		g.writeln(indent + "break")

	case *ast.ContinueStmt:
		if fc.tryDepth > 0 {
			g.fail(v.Pos(), "continue inside try/except/finally is not supported")
			return
		}
		g.writeln(indent + "continue")

	case *ast.Block:
		g.writeln(indent + "{")
		g.emitBlockStmts(v, fc, indent+"\t")
		g.writeln(indent + "}")

	default:
		g.fail(stmt.Pos(), "unsupported statement type %T", stmt)
	}
}

func (g *gen) emitAssign(a *ast.AssignStmt, fc *funcCtx, indent string) {
	val := g.emitExpr(a.Value, fc)
	switch t := a.Target.(type) {
	case *ast.Identifier:
		if fc.scope.isDeclared(t.Name) {
			g.writeln(indent + fmt.Sprintf("%s = %s", govar(t.Name), val))
		} else {
			g.writeln(indent + fmt.Sprintf("%s := %s", govar(t.Name), val))
			fc.scope.declare(t.Name)
		}
	case *ast.MemberExpr:
		obj := g.emitExpr(t.Object, fc)
		g.writeln(indent + fmt.Sprintf("runtime.Must(runtime.SetMember(__env, %s, %s, %s))", obj, quoteGoString(t.Name), val))
	case *ast.IndexExpr:
		obj := g.emitExpr(t.Object, fc)
		idx := g.emitExpr(t.Index, fc)
		g.writeln(indent + fmt.Sprintf("runtime.Must(runtime.SetIndexValue(__env, %s, %s, %s))", obj, idx, val))
	default:
		g.fail(a.Pos(), "unsupported assignment target %T", a.Target)
	}
}

// emitFor lowers `for (x in expr) block` over either a sequence
// (positional) or a mapping (its keys, in insertion order).
func (g *gen) emitFor(f *ast.ForStmt, fc *funcCtx, indent string) {
	iter := g.emitExpr(f.Iter, fc)
	iterVar := "__iter" + fmt.Sprint(g.tryCounter)
	g.tryCounter++
	g.writeln(indent + fmt.Sprintf("%s := %s", iterVar, iter))
	g.writeln(indent + fmt.Sprintf("switch %s.TypeName() {", iterVar))
	g.writeln(indent + `case "sequence":`)
	idxVar := iterVar + "_i"
	g.writeln(indent + fmt.Sprintf("\tfor %s := 0; %s < %s.AsSequence().Len(); %s++ {", idxVar, idxVar, iterVar, idxVar))
	g.writeln(indent + fmt.Sprintf("\t\t%s = %s.AsSequence().At(%s)", govar(f.Var), iterVar, idxVar))
	g.emitBlockStmts(f.Body, fc, indent+"\t\t")
	g.writeln(indent + "\t}")
	g.writeln(indent + `case "mapping":`)
	keyVar := iterVar + "_k"
	g.writeln(indent + fmt.Sprintf("\tfor _, %s := range %s.AsMapping().Keys() {", keyVar, iterVar))
	g.writeln(indent + fmt.Sprintf("\t\t%s = runtime.String(%s)", govar(f.Var), keyVar))
	g.emitBlockStmts(f.Body, fc, indent+"\t\t")
	g.writeln(indent + "\t}")
	g.writeln(indent + "default:")
	g.writeln(indent + fmt.Sprintf("\tpanic(runtime.PanicError{Err: runtime.NewArityError(%s, 0, 0)})", quoteGoString("for-in requires a sequence or mapping")))
	g.writeln(indent + "}")
}

// emitTry lowers try/except/finally onto one IIFE whose two defers run
// except-handling before finally (Go defers run LIFO: finally is
// registered first so it runs last). `return` inside the try/except/
// finally body sets the outer function's named results through the
// __retN sentinel and the IIFE's caller checks it and re-returns,
// because a bare Go `return` inside the IIFE would only return from the
// closure, not the enclosing function (see package doc).
func (g *gen) emitTry(t *ast.TryStmt, fc *funcCtx, indent string) {
	g.tryCounter++
	id := g.tryCounter
	retVar := fmt.Sprintf("__ret%d", id)
	g.writeln(indent + fmt.Sprintf("var %s bool", retVar))
	g.writeln(indent + "func() {")

	inner := &funcCtx{scope: newScope(fc.scope), tryDepth: id}

	if t.Finally != nil {
		g.writeln(indent + "\tdefer func() {")
		g.emitBlockStmts(t.Finally, inner, indent+"\t\t")
		g.writeln(indent + "\t}()")
	}

	if len(t.ExceptClauses) > 0 {
		clause := t.ExceptClauses[0]
		g.writeln(indent + "\tdefer func() {")
		g.writeln(indent + "\t\tif r := recover(); r != nil {")
		g.writeln(indent + "\t\t\tpe, ok := r.(runtime.PanicError)")
		g.writeln(indent + "\t\t\tif !ok { panic(r) }")
		if clause.Binding != "" {
			g.writeln(indent + fmt.Sprintf("\t\t\t%s = runtime.ErrorValue(pe.Err)", govar(clause.Binding)))
		} else {
			g.writeln(indent + "\t\t\t_ = pe")
		}
		g.emitBlockStmts(clause.Body, inner, indent+"\t\t\t")
		g.writeln(indent + "\t\t}")
		g.writeln(indent + "\t}()")
	}

	g.emitBlockStmts(t.Body, inner, indent+"\t")
	g.writeln(indent + "}()")
	g.writeln(indent + fmt.Sprintf("if %s { return }", retVar))
}

// emitExpr renders e as a single Go expression string; compound
// operations are wrapped in runtime.Must so a failing sub-expression
// unwinds immediately via panic rather than needing Go's multi-value
// error returns threaded through arbitrary nesting.
func (g *gen) emitExpr(e ast.Expr, fc *funcCtx) string {
	switch v := e.(type) {
	case *ast.Literal:
		switch v.Kind {
		case ast.LitNumber:
			return fmt.Sprintf("runtime.Number(%v)", v.Number)
		case ast.LitString:
			return fmt.Sprintf("runtime.String(%s)", quoteGoString(v.Str))
		case ast.LitBool:
			return fmt.Sprintf("runtime.Bool(%v)", v.Bool)
		case ast.LitNull:
			return "runtime.Null()"
		}
		return "runtime.Null()"

	case *ast.Identifier:
		if fc.scope.isDeclared(v.Name) {
			return govar(v.Name)
		}
		// Unscoped identifiers only ever name top-level functions in this
		// grammar (there are no free global variables); referencing one as
		// a bare value yields the Go function variable itself, unwrapped.
		return govar(v.Name)

	case *ast.BinaryExpr:
		l := g.emitExpr(v.Left, fc)
		r := g.emitExpr(v.Right, fc)
		return fmt.Sprintf("runtime.Must(runtime.Binary(%s, %s, %s))", quoteGoString(string(v.Op)), l, r)

	case *ast.UnaryExpr:
		operand := g.emitExpr(v.Operand, fc)
		if v.Op == ast.OpNot {
			return fmt.Sprintf("runtime.Not(%s)", operand)
		}
		return fmt.Sprintf("runtime.Must(runtime.Neg(%s))", operand)

	case *ast.CallExpr:
		return g.emitCall(v, fc)

	case *ast.MemberExpr:
		obj := g.emitExpr(v.Object, fc)
		return fmt.Sprintf("runtime.Must(runtime.SafeAttrAccess(__env, %s, %s))", obj, quoteGoString(v.Name))

	case *ast.IndexExpr:
		obj := g.emitExpr(v.Object, fc)
		idx := g.emitExpr(v.Index, fc)
		return fmt.Sprintf("runtime.Must(runtime.IndexAccess(__env, %s, %s))", obj, idx)

	case *ast.ArrayLit:
		parts := make([]string, len(v.Elements))
		for i, el := range v.Elements {
			parts[i] = g.emitExpr(el, fc)
		}
		return fmt.Sprintf("runtime.FromSequence(runtime.NewSequence(%s))", strings.Join(parts, ", "))

	case *ast.ObjectLit:
		keys := make([]string, len(v.Keys))
		for i, k := range v.Keys {
			keys[i] = quoteGoString(k)
		}
		vals := make([]string, len(v.Values))
		for i, val := range v.Values {
			vals[i] = g.emitExpr(val, fc)
		}
		return fmt.Sprintf("runtime.BuildMapping([]string{%s}, []runtime.Value{%s})", strings.Join(keys, ", "), strings.Join(vals, ", "))

	case *ast.TemplateLit:
		return g.emitTemplate(v, fc)

	default:
		g.fail(e.Pos(), "unsupported expression type %T", e)
		return "runtime.Null()"
	}
}

func (g *gen) emitTemplate(t *ast.TemplateLit, fc *funcCtx) string {
	acc := "runtime.String(\"\")"
	for i, part := range t.Parts {
		var piece string
		if t.PartIsExpr[i] {
			piece = g.emitExpr(t.Exprs[exprIndex(t, i)], fc)
		} else {
			piece = fmt.Sprintf("runtime.String(%s)", quoteGoString(part))
		}
		acc = fmt.Sprintf("runtime.Must(runtime.Binary(\"+\", %s, %s))", acc, piece)
	}
	return acc
}

// exprIndex counts how many expression slots precede position i among
// t.PartIsExpr, since Exprs only holds entries for the expr-is-true
// positions.
func exprIndex(t *ast.TemplateLit, i int) int {
	n := 0
	for j := 0; j < i; j++ {
		if t.PartIsExpr[j] {
			n++
		}
	}
	return n
}

// emitCall distinguishes three call shapes: a plain name referring to a
// declared ML function, `module.fn(...)` referring to an imported
// bridge's module-level function, and `x.y(...)` — a capability-gated
// method call on a value.
func (g *gen) emitCall(c *ast.CallExpr, fc *funcCtx) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = g.emitExpr(a, fc)
	}
	argList := fmt.Sprintf("[]runtime.Value{%s}", strings.Join(args, ", "))

	switch callee := c.Callee.(type) {
	case *ast.Identifier:
		return fmt.Sprintf("runtime.Must(%s(%s))", govar(callee.Name), argList)

	case *ast.MemberExpr:
		if id, ok := callee.Object.(*ast.Identifier); ok && !fc.scope.isDeclared(id.Name) {
			return fmt.Sprintf("runtime.Must(runtime.CallModule(__env, %s, %s, %s...))", quoteGoString(id.Name), quoteGoString(callee.Name), argList)
		}
		obj := g.emitExpr(callee.Object, fc)
		return fmt.Sprintf("runtime.Must(runtime.CallMethod(__env, %s, %s, %s...))", obj, quoteGoString(callee.Name), argList)

	default:
		g.fail(c.Pos(), "unsupported call target %T", c.Callee)
		return "runtime.Null()"
	}
}
