package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	policyPath string

	outputDir string
	sandboxed bool
	cpuTimeS  int64
	memoryMB  int64
	noNetwork bool

	logger *zap.Logger
)

// rootCmd mirrors cmd/nerd/main.go's rootCmd + PersistentPreRunE pattern:
// one *zap.Logger built per invocation, synced on exit.
var rootCmd = &cobra.Command{
	Use:   "mlc",
	Short: "Transpile and run ML programs under a capability-gated sandbox",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "path to a policy file granting capabilities (§6.5)")

	rootCmd.AddCommand(transpileCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)

	runCmd.Flags().BoolVar(&sandboxed, "sandbox", true, "execute inside the resource-bounded sandbox")
	runCmd.Flags().Int64Var(&cpuTimeS, "cpu-time", 5, "CPU time limit in seconds")
	runCmd.Flags().Int64Var(&memoryMB, "memory-mb", 256, "memory limit in megabytes")
	runCmd.Flags().BoolVar(&noNetwork, "no-network", true, "deny network-capable bridges")

	transpileCmd.Flags().StringVar(&outputDir, "output", ".", "directory to write generated Go source into")
}
