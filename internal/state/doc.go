// Package state persists the notification ledger between cycles.
//
// It currently supports:
//   - A single human-diffable JSON document (file driver, default)
//   - SQLite (optional build tag)
//
// Load() never fails: corrupt, legacy or missing documents self-heal into a
// normalized empty document so a cycle can always make forward progress.
package state
