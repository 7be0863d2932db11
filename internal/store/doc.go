// Package store defines the persistence contract for tasks.
//
// TaskStore abstracts the underlying data storage from the lifecycle
// service; Transactor and RunInTransaction give services a single commit
// boundary for multi-statement work such as the overdue sweep.
package store
