// Package history persists the conversion history in SQLite.
//
// Each processed source file produces one record keyed by a content
// fingerprint, so later batches can skip inputs that already converted
// successfully and users can inspect what failed and why. The store wraps
// database/sql with the pure-Go modernc.org/sqlite driver, applies WAL and
// busy-timeout pragmas, and retries writes that hit SQLITE_BUSY when several
// processes share one state directory.
package history
