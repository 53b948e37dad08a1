// Package config loads, normalizes, and validates the TOML configuration
// shared by the vintner daemon and CLI. All matching weights, confidence
// thresholds, and cache limits live here so tests and deployments can vary
// them without code changes.
package config
