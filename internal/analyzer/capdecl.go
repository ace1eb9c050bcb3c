package analyzer

import (
	"fmt"

	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
)

var knownOperations = map[string]bool{
	"read": true, "write": true, "connect": true, "listen": true, "execute": true, "delete": true,
}

// runCapabilityDeclPass implements the capability-declaration structural
// sub-pass: this only checks that each `capability` block is well-formed
// on its own terms — it does not decide whether the
// declaration is covered by any granted token, which is
// internal/capability.Validate's job once a policy is loaded.
func runCapabilityDeclPass(prog *ast.Program, file string) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic
	seen := map[string]ast.Span{}

	for _, decl := range prog.Capabilities {
		if prior, dup := seen[decl.Name]; dup {
			diags = append(diags, diagnostic.Diagnostic{
				Severity: diagnostic.Medium,
				Category: "capdecl.duplicate",
				Message:  fmt.Sprintf("capability %q is declared more than once (first at line %d)", decl.Name, prior.Line),
				File:     file,
				Span:     decl.Span,
			})
		} else {
			seen[decl.Name] = decl.Span
		}

		if len(decl.ResourcePatterns) == 0 {
			diags = append(diags, diagnostic.Diagnostic{
				Severity: diagnostic.Medium,
				Category: "capdecl.no-resources",
				Message:  fmt.Sprintf("capability %q declares no resource patterns; it can never be satisfied by a grant with a narrower scope", decl.Name),
				File:     file,
				Span:     decl.Span,
			})
		}

		if len(decl.Allows) == 0 {
			diags = append(diags, diagnostic.Diagnostic{
				Severity: diagnostic.Low,
				Category: "capdecl.no-operations",
				Message:  fmt.Sprintf("capability %q declares no allowed operations", decl.Name),
				File:     file,
				Span:     decl.Span,
			})
		}

		for _, allow := range decl.Allows {
			if !knownOperations[allow.Operation] {
				diags = append(diags, diagnostic.Diagnostic{
					Severity: diagnostic.Low,
					Category: "capdecl.unknown-operation",
					Message:  fmt.Sprintf("capability %q allows unrecognized operation %q", decl.Name, allow.Operation),
					File:     file,
					Span:     allow.Span,
				})
			}
		}
	}

	return diags
}
