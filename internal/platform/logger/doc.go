// Package logger configures the process-wide slog JSON logger and carries
// request-scoped loggers through context.Context, so log lines written deep
// in the store share the trace and user attributes added by the HTTP layer.
package logger
