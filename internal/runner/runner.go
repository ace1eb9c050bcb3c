// Package runner hosts a yaegi interpreter restricted to exactly
// internal/runtime's public surface and uses it to execute one piece of
// codegen-produced Go source — a generated `package main` importing only
// internal/runtime. This is the mechanism that enforces "no direct
// import of host libraries" from inside generated code: yaegi only
// resolves identifiers present in the symbol table passed to Use, so a
// generated program that somehow referenced "os" or "net" would fail to
// resolve rather than ever touching the host.
//
// Shape: interp.New, i.Use(symbols), i.Eval(source), type-asserting the
// result of evaluating the entry point, then racing the call against
// ctx.Done() in a goroutine.
package runner

import (
	"context"
	"fmt"

	"github.com/traefik/yaegi/interp"

	"mlsec/internal/runtime"
)

// Run interprets generatedSource (the output of codegen.Generate) and
// calls its Run(env) entry point, returning whatever the ML program's
// top-level execution produced.
func Run(ctx context.Context, generatedSource string, env *runtime.Env) (runtime.Value, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(exports); err != nil {
		return runtime.Value{}, fmt.Errorf("runner: load runtime symbols: %w", err)
	}

	if _, err := i.Eval(generatedSource); err != nil {
		return runtime.Value{}, fmt.Errorf("runner: evaluate generated source: %w", err)
	}

	v, err := i.Eval("main.Run")
	if err != nil {
		return runtime.Value{}, fmt.Errorf("runner: generated source has no Run entry point: %w", err)
	}
	entry, ok := v.Interface().(func(*runtime.Env) (runtime.Value, error))
	if !ok {
		return runtime.Value{}, fmt.Errorf("runner: Run has unexpected signature %T", v.Interface())
	}

	type outcome struct {
		val runtime.Value
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				v, err := runtime.Recover(r)
				done <- outcome{v, err}
			}
		}()
		v, err := entry(env)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		return runtime.Value{}, fmt.Errorf("runner: execution canceled: %w", ctx.Err())
	}
}
