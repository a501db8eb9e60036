// Package config loads and merges copyedit configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (COPYEDIT_FORMAT, COPYEDIT_RULES_DISABLE, etc.)
//  3. Config file ($XDG_CONFIG_HOME/copyedit/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Init] to write a default config
// file, and [Set] to update a single key in the config file.
package config
