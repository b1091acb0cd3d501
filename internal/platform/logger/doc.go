// Package logger provides structured logging functionality for the
// application, including context propagation helpers so request-scoped
// loggers travel with a context.Context.
package logger
