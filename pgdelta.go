// Package pgdelta parses PostgreSQL schema definitions into per-schema
// snapshots, and provides the sources those definitions are read from.
// The diff subpackage computes the statements to apply between two
// snapshots.
package pgdelta

// Version is the current version of pgdelta
const Version = "v0.3.0"
