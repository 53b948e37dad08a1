// Package logging builds slog loggers for the daemon and CLI, and provides
// standardized attribute helpers and field names used across components.
package logging
