// Package cli provides common utilities for the topograph command line.
//
// This package includes:
//   - Configuration management (contexts, one per deployment)
//   - Output formatting (YAML, JSON, table)
//   - Request file loading (YAML/JSON)
//
// Configuration is stored in ~/.topograph/config.yaml. Each context names
// a graph document, a template source and matcher settings, similar to
// kubectl contexts.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("")
//	ctx, err := cfg.ResolveContext("prod")
//
//	cli.Output(findings, cli.OutputOptions{
//	    Format: cli.FormatTable,
//	    File:   outputPath,
//	})
package cli
