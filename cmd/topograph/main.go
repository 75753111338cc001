// Package main is the entry point for the topograph CLI.
//
// Usage:
//
//	topograph [flags] <command> [subcommand] [args]
//
// Commands:
//
//	query     - Filter the entity graph or walk a vertex neighborhood
//	match     - Match one template against the entity graph
//	changed   - Run every template against a changed vertex or edge
//	template  - Validate, list, import and export templates
//	config    - Configuration management (contexts)
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/topograph/cmd/topograph/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
