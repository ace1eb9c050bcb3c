package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mlsec/internal/codegen"
)

// transpileCmd implements `transpile <input.ml> [--output <dir>]`: exits
// 0 on success, 2 on analysis rejection, 1 on infrastructure failure.
var transpileCmd = &cobra.Command{
	Use:   "transpile <input.ml>",
	Short: "Lower an ML source file to Go source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runTranspile(args[0]))
	},
}

// compile runs the parse-analyze-generate pipeline shared by transpile
// and run, aborting on a critical diagnostic. It returns exit code 2 for
// an analysis rejection so both callers can just propagate it.
func compile(path string) (*codegen.Result, int) {
	source, err := os.ReadFile(path)
	if err != nil {
		logger.Error("cannot read source file", zap.Error(err))
		return nil, 1
	}

	prog, diags, code := parseAndAnalyze(source, path)
	if code != 0 {
		for _, d := range diags {
			printDiagnostic(d)
		}
		return nil, code
	}

	result, err := codegen.Generate(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, 2
	}
	return result, 0
}

func runTranspile(path string) int {
	result, code := compile(path)
	if code != 0 {
		return code
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Error("cannot create output directory", zap.Error(err))
		return 1
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outputDir, base+".gen.go")
	if err := os.WriteFile(outPath, []byte(result.Source), 0o644); err != nil {
		logger.Error("cannot write generated source", zap.Error(err))
		return 1
	}
	logger.Info("transpiled", zap.String("input", path), zap.String("output", outPath))
	return 0
}
