// Package cli wires together the Cobra command tree for the copyedit binary.
//
// It defines the root command and all subcommands (fix, diff, rules, config,
// cache, history, hook, version), binds flags, reads configuration, runs the
// editing pipeline, and returns deterministic exit codes for CI gating.
package cli
