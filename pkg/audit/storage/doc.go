// Package storage provides audit record storage backends: an in-memory
// store for tests and a SQLite store for persistence.
package storage
