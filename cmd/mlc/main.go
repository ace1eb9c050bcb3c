// Command mlc is the ML compiler CLI: transpile, run, and analyze a
// source file. Everything else — REPL, project scaffolding, watch mode,
// IDE/LSP surfaces — is out of scope.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
