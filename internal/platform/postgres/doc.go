// Package postgres contains PostgreSQL-backed implementations of the
// storage interfaces defined elsewhere in the application, currently the
// durable snapshot key-value store.
package postgres
