package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mlsec/internal/diagnostic"
)

// analyzeCmd implements `analyze <input.ml>`: prints diagnostics only;
// exit 0 if none at or above medium, else 2.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <input.ml>",
	Short: "Run the static security analyzer and print diagnostics",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runAnalyze(args[0]))
	},
}

func runAnalyze(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		logger.Error("cannot read source file", zap.Error(err))
		return 1
	}

	_, diags, code := parseAndAnalyze(source, path)
	for _, d := range diags {
		printDiagnostic(d)
	}
	if code != 0 && len(diags) == 0 {
		return code
	}
	if len(diagnostic.AtOrAbove(diags, diagnostic.Medium)) > 0 {
		return 2
	}
	return 0
}

func printDiagnostic(d diagnostic.Diagnostic) {
	fmt.Printf("%s:%d:%d: %s[%s]: %s\n", d.File, d.Span.Line, d.Span.Column, d.Severity, d.Category, d.Message)
	if d.Suggestion != "" {
		fmt.Printf("  suggestion: %s\n", d.Suggestion)
	}
}
