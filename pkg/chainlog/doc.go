// Package chainlog implements the Merkle-chained, append-only audit log
// that every core component writes to. Each entry's root folds in the
// previous entry's root, so altering or dropping any past entry changes
// every root after it and Verify catches the break.
//
// The log is append-only on disk: entries are written as one JSON object
// per line to a file opened O_APPEND, and held in memory as a slice for
// fast Verify and status queries. A disk write failure must never leave
// the in-memory chain ahead of what's durable, so Append writes to disk
// before updating in-memory state.
package chainlog
