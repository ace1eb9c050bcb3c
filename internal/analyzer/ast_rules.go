package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
)

var dunderPattern = regexp.MustCompile(`^__.*__$`)

// forbiddenImportRoots is a fixed denylist of host-level module roots no
// ML source may import directly — distinct from the stdlib bridge
// surface (math/json/regex/path/file/network), which is reached only
// through internal/bridge's capability-gated registration API, never a
// bare `import`.
var forbiddenImportRoots = map[string]bool{
	"os": true, "sys": true, "subprocess": true, "ctypes": true,
	"socket": true, "thread": true, "process": true,
}

// runASTPass implements the AST structural rule sub-pass: dunder member
// access and forbidden imports. The parser (internal/parser)
// already rejects dunder member access at parse time as a fail-fast
// ParseError; this sub-pass exists for ASTs that reach the analyzer
// without going through that parser (tooling-constructed or
// machine-generated ASTs), so the rule is enforced structurally rather
// than only at one front-end.
func runASTPass(prog *ast.Program, file string) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic

	for _, imp := range prog.Imports {
		if len(imp.Path) == 0 {
			continue
		}
		root := imp.Path[0]
		if forbiddenImportRoots[root] {
			diags = append(diags, diagnostic.Diagnostic{
				Severity: diagnostic.Critical,
				Category: "ast.forbidden-import",
				Message:  fmt.Sprintf("import of %q is not permitted; host-level modules are reached only through a capability-gated bridge", strings.Join(imp.Path, ".")),
				File:     file,
				Span:     imp.Span,
				CWE:      "CWE-829",
			})
		}
	}

	ast.Walk(prog, func(n ast.Node) bool {
		if m, ok := n.(*ast.MemberExpr); ok && dunderPattern.MatchString(m.Name) {
			diags = append(diags, diagnostic.Diagnostic{
				Severity: diagnostic.Critical,
				Category: "ast.dunder-access",
				Message:  fmt.Sprintf("access to dunder attribute %q is forbidden", m.Name),
				File:     file,
				Span:     m.Pos(),
				CWE:      "CWE-470",
			})
		}
		return true
	})

	return diags
}
