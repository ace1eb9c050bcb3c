package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"mlsec/internal/analyzer"
	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
	"mlsec/internal/parser"
)

// parseAndAnalyze runs the parser then the security analyzer: a parse
// failure or a critical-severity diagnostic both abort the pipeline
// here, before code generation ever sees the program. The returned code
// is 0 to continue, 1 for infrastructure failure, 2 for a rejection the
// caller should report and stop on.
func parseAndAnalyze(source []byte, path string) (*ast.Program, []diagnostic.Diagnostic, int) {
	prog, err := parser.Parse(source, path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, 2
	}

	result, err := analyzer.Analyze(context.Background(), prog, path)
	if err != nil {
		logger.Error("analyzer infrastructure failure", zap.Error(err))
		return nil, nil, 1
	}
	if result.Partial {
		fmt.Fprintf(os.Stderr, "warning: passes timed out and were omitted: %v\n", result.TimedOutPass)
	}
	if diagnostic.MaxSeverity(result.Diagnostics) == diagnostic.Critical {
		return nil, result.Diagnostics, 2
	}
	return prog, result.Diagnostics, 0
}
