// Package logger provides structured logging for respkv.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, JSON/text handlers, dynamic level
//   - context.go: context-carried loggers with connection and request IDs
//   - redact.go: redaction of sensitive attributes
//
// String attributes whose key contains "value", "password", "secret" and
// similar words are replaced with a placeholder, so stored payloads never
// reach log output.
package logger
