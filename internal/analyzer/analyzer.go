package analyzer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
)

// subPassTimeout bounds each of the four sub-passes individually: a
// single slow pass demotes the result to "partial" rather than blocking
// compilation indefinitely.
const subPassTimeout = 30 * time.Second

// Result is the SecurityAnalyzer's output for one compilation unit.
type Result struct {
	Diagnostics []diagnostic.Diagnostic
	// Partial is true if one or more sub-passes did not complete within
	// subPassTimeout; the diagnostics from a partial pass are simply
	// omitted rather than best-effort, since a pattern/taint/AST pass that
	// timed out partway through cannot be trusted to have covered the
	// whole program.
	Partial      bool
	TimedOutPass []string
}

// Analyze runs all four security sub-passes concurrently (pattern, AST
// structural, taint, capability-declaration) over the same parsed
// program and merges their findings via diagnostic.Dedup; callers derive
// the overall severity with diagnostic.MaxSeverity. A critical finding is the caller's cue to abort
// compilation before code generation ever runs.
func Analyze(ctx context.Context, prog *ast.Program, file string) (*Result, error) {
	type passOutcome struct {
		name    string
		diags   []diagnostic.Diagnostic
		timeout bool
	}

	names := []string{"pattern", "ast", "taint", "capdecl"}
	outcomes := make([]passOutcome, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			diags, timedOut, err := runWithTimeout(gctx, subPassTimeout, func() ([]diagnostic.Diagnostic, error) {
				switch name {
				case "pattern":
					return runPatternPass(prog, file)
				case "ast":
					return runASTPass(prog, file), nil
				case "taint":
					return runTaintPass(prog, file), nil
				case "capdecl":
					return runCapabilityDeclPass(prog, file), nil
				default:
					return nil, nil
				}
			})
			if err != nil {
				return err
			}
			outcomes[i] = passOutcome{name: name, diags: diags, timeout: timedOut}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	lists := make([][]diagnostic.Diagnostic, 0, len(outcomes))
	for _, o := range outcomes {
		if o.timeout {
			result.Partial = true
			result.TimedOutPass = append(result.TimedOutPass, o.name)
			continue
		}
		lists = append(lists, o.diags)
	}
	result.Diagnostics = diagnostic.Dedup(lists...)
	return result, nil
}

// runWithTimeout runs fn on its own goroutine and reports whether it beat
// the deadline. fn itself has no cancellation hook (each sub-pass is a
// bounded walk over an already-parsed, finite AST), so a timeout leaves
// the goroutine to finish in the background rather than leaking —
// observing a long-running computation from the outside without being
// able to preempt it.
func runWithTimeout(ctx context.Context, d time.Duration, fn func() ([]diagnostic.Diagnostic, error)) ([]diagnostic.Diagnostic, bool, error) {
	type out struct {
		diags []diagnostic.Diagnostic
		err   error
	}
	done := make(chan out, 1)
	go func() {
		diags, err := fn()
		done <- out{diags, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.diags, false, o.err
	case <-timer.C:
		return nil, true, nil
	case <-ctx.Done():
		return nil, true, nil
	}
}
