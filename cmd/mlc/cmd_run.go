package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mlsec/internal/capability"
	"mlsec/internal/policy"
	"mlsec/internal/sandbox"
)

// runCmd implements `run <input.ml> [--sandbox] [--cpu-time N]
// [--memory-mb N] [--no-network]`: transpile, validate declared
// capabilities against --policy, then execute the generated program
// inside cmd/mlrunner via internal/sandbox. The process exits with the
// child's own exit code.
var runCmd = &cobra.Command{
	Use:   "run <input.ml>",
	Short: "Transpile and execute an ML program under the capability sandbox",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runRun(args[0]))
	},
}

func runRun(path string) int {
	result, code := compile(path)
	if code != 0 {
		return code
	}

	declared, err := declarationsOf(path)
	if err != nil {
		logger.Error("cannot re-read capability declarations", zap.Error(err))
		return 1
	}

	var tokens []*capability.Token
	if policyPath != "" {
		pol, err := policy.Load(policyPath)
		if err != nil {
			logger.Error("cannot load policy", zap.String("path", policyPath), zap.Error(err))
			return 1
		}
		granted := policy.Merge([]*policy.Policy{pol})
		if bad, reason := capability.Validate(declared, granted); bad != nil {
			fmt.Fprintf(os.Stderr, "capability %q not granted by policy: %s\n", bad.Type, reason)
			return 2
		}
		tokens = pol.MintTokens()
	} else if len(declared) > 0 {
		fmt.Fprintln(os.Stderr, "program declares capabilities but no --policy was given")
		return 2
	}

	runnerPath, err := resolveRunnerPath()
	if err != nil {
		logger.Error("cannot locate mlrunner binary", zap.Error(err))
		return 1
	}

	cfg := sandbox.Config{
		RunnerPath:       runnerPath,
		CPUTimeLimitS:    cpuTimeS,
		WallTimeLimitS:   cpuTimeS * 6,
		MemoryBytesLimit: memoryMB * 1024 * 1024,
		MaxOpenFiles:     64,
		NetworkAllowed:   !noNetwork,
		CapabilityTokens: tokens,
	}
	if !sandboxed {
		cfg.CPUTimeLimitS = 0
		cfg.MemoryBytesLimit = 0
	}

	res, err := sandbox.Execute(context.Background(), result.Source, cfg)
	if err != nil {
		logger.Error("sandbox execution failed", zap.Error(err))
		return 1
	}

	if res.Stdout != "" {
		fmt.Fprint(os.Stdout, res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	logger.Debug("run complete", zap.String("state", res.State.String()), zap.String("exit_code", res.ExitCode))
	return res.RawExitCode
}

// declarationsOf re-parses path for its top-level capability declarations,
// resolved to the flat shape capability.Validate checks. The
// analyzer already validated the program once in compile(); this is a
// second, cheap parse rather than threading the AST out of compile's
// codegen.Result return.
func declarationsOf(path string) ([]capability.Declaration, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, diags, code := parseAndAnalyze(source, path)
	if code != 0 {
		for _, d := range diags {
			printDiagnostic(d)
		}
		return nil, fmt.Errorf("program no longer parses cleanly")
	}

	out := make([]capability.Declaration, 0, len(prog.Capabilities))
	for _, c := range prog.Capabilities {
		ops := make([]string, 0, len(c.Allows))
		for _, a := range c.Allows {
			ops = append(ops, a.Operation)
		}
		out = append(out, capability.Declaration{
			Type:             c.Name,
			ResourcePatterns: c.ResourcePatterns,
			Operations:       ops,
		})
	}
	return out, nil
}

// resolveRunnerPath finds the mlrunner binary: first next to the current
// executable (the normal install layout, matching cmd/nerd's sibling
// binary resolution), then on PATH.
func resolveRunnerPath() (string, error) {
	self, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(self), "mlrunner")
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}
	return exec.LookPath("mlrunner")
}
