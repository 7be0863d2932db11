// Package service implements the task lifecycle: creating, reading,
// updating, deleting and listing a caller's tasks, and the overdue
// recalculation sweep.
//
// TaskServices holds the shared dependencies (store, transactor, metrics,
// clock). ForOwner binds them to one caller identity for the duration of a
// request. Mutations run through store.Transactor so each one commits
// exactly once; the sweep reads and writes inside a single transaction.
package service
