/*
Package log provides structured logging for gitping using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level.

Initialize once at process start:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

Packages obtain scoped child loggers:

	logger := log.WithComponent("registry")
	logger.Info().Str("subscriber_id", id).Msg("client registered")

Console (human-readable) output is intended for local development; JSON output
for anything that ships logs to a collector.
*/
package log
