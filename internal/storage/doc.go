// Package storage provides the SQLite persistence layer behind the rule
// engine's collaborator interfaces: rule definitions, per-sender scores,
// marker buckets, link summaries and the evaluation debug log.
//
// The database is a single file opened with WAL journaling and a busy
// timeout, using the pure-Go modernc.org/sqlite driver so no cgo toolchain
// is needed. All stores hang off one Store handle and share the connection
// pool.
package storage
