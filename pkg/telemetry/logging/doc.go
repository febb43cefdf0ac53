// Package logging configures structured logging for Callisto on top
// of log/slog. Components obtain loggers via
// slog.Default().With("component", ...); this package builds the
// default logger from configuration.
package logging
