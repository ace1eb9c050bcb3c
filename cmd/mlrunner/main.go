// Command mlrunner is the isolated subprocess internal/sandbox spawns
// for every execution. It is not a CLI surface for a human — it
// self-applies resource limits before interpreting a byte of
// user-supplied code, builds the root capability context from a token
// file the parent wrote, streams audit events down an inherited pipe,
// and reports its outcome as one JSON record on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"mlsec/internal/bridge"
	"mlsec/internal/bridge/stringsbridge"
	"mlsec/internal/capability"
	"mlsec/internal/runner"
	"mlsec/internal/runtime"
	"mlsec/internal/safeattr"
	"mlsec/internal/sandbox"
)

// report is the one structured record mlrunner writes to stdout before
// exiting, letting the parent sandbox recover the program's outcome
// without depending on any particular stdout formatting convention.
type report struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

func main() {
	os.Exit(run())
}

func run() int {
	sourcePath := flag.String("source", "", "path to generated Go source")
	tokensPath := flag.String("tokens", "", "path to the JSON-encoded capability token file")
	cpuTimeS := flag.Int64("cpu-time", 0, "CPU time limit in seconds (0 = unlimited)")
	memoryBytes := flag.Int64("memory-bytes", 0, "address-space limit in bytes (0 = unlimited)")
	maxOpenFiles := flag.Int64("max-open-files", 0, "open file descriptor limit (0 = unlimited)")
	network := flag.Bool("network", false, "unused placeholder for the --no-network CLI flag; network access is mediated entirely by capability-gated bridges, never by a host socket the interpreted program could reach")
	flag.Parse()
	_ = *network

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := sandbox.ApplyRlimits(*cpuTimeS, *memoryBytes, *maxOpenFiles); err != nil {
		logger.Error("failed to apply resource limits", zap.Error(err))
		return writeReport(report{Error: fmt.Sprintf("infrastructure error: apply rlimits: %v", err)}, 1)
	}

	source, err := os.ReadFile(*sourcePath)
	if err != nil {
		logger.Error("failed to read generated source", zap.Error(err))
		return writeReport(report{Error: fmt.Sprintf("infrastructure error: read source: %v", err)}, 1)
	}

	tokens, err := loadTokens(*tokensPath)
	if err != nil {
		logger.Error("failed to read capability tokens", zap.Error(err))
		return writeReport(report{Error: fmt.Sprintf("infrastructure error: read tokens: %v", err)}, 1)
	}

	auditor := capability.NewAuditor(newPipeSink())
	root := capability.Instance().NewRootContext("sandbox-root", tokens)
	root.SetAuditor(auditor)

	table := bridge.NewTable()
	stringsbridge.New(table)

	env := &runtime.Env{Registry: safeattr.New(), Bridges: table, Ctx: root}

	result, err := runner.Run(context.Background(), string(source), env)
	if err != nil {
		logger.Warn("program execution failed", zap.Error(err))
		return writeReport(report{Error: err.Error()}, 1)
	}
	return writeReport(report{Result: result.Display(), Kind: result.TypeName()}, 0)
}

func writeReport(r report, code int) int {
	enc := json.NewEncoder(os.Stdout)
	enc.Encode(r) //nolint:errcheck
	return code
}

func loadTokens(path string) ([]*capability.Token, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tokens []*capability.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// newPipeSink returns an audit sink that writes one JSON line per event
// to fd 3, the pipe internal/sandbox.Execute passes via cmd.ExtraFiles.
// A missing fd 3 (e.g. running mlrunner standalone outside the sandbox)
// degrades to a no-op rather than failing the whole execution.
func newPipeSink() func(capability.AuditEvent) {
	pipe := os.NewFile(3, "audit-pipe")
	if pipe == nil {
		return nil
	}
	enc := json.NewEncoder(pipe)
	return func(e capability.AuditEvent) {
		enc.Encode(e) //nolint:errcheck
	}
}
