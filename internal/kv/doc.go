// Package kv provides the byte-level key space underneath the patient store.
//
// A Store maps opaque string keys to opaque byte values. Three backends are
// provided:
//   - Memory: process-local map, used by tests and throwaway sessions
//   - SQLite: a single durable file (one row per key)
//   - Redis: a shared server, keys namespaced under a prefix
//
// # Guarantees
//
//   - Single-key atomicity: a reader never observes a partially written value.
//   - Absence is not an error: Get on a missing key returns found=false.
//   - Apply is all-or-nothing: either every Op in the batch lands or none do.
//   - Keys returns matches in ascending byte order, never nil.
//
// There is no isolation between separate calls. Two writers that each read a
// key, modify it and write it back can lose one another's changes; callers
// that need several keys to move together must use Apply.
package kv
